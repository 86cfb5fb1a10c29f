package lifecycle

import "time"

// Health 面向健康检查接口的快照视图
type Health struct {
	Connected   bool       `json:"connected"`
	Status      string     `json:"status"`
	State       State      `json:"state"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
	Since       time.Time  `json:"since"`
	Attempts    int        `json:"attempts"`
	Generation  uint64     `json:"generation"`
	Exhausted   bool       `json:"exhausted,omitempty"`
}

// NewHealth 由快照生成健康视图
func NewHealth(snap Snapshot) Health {
	h := Health{
		Connected:  snap.State == StateConnected,
		Status:     StatusOf(snap.State),
		State:      snap.State,
		Since:      snap.Since,
		Attempts:   snap.Attempts,
		Generation: snap.Generation,
		Exhausted:  snap.Exhausted,
	}
	if snap.LastError != nil {
		at := snap.LastError.At
		h.LastError = snap.LastError.Message
		h.LastErrorAt = &at
	}
	return h
}

// StatusOf 返回状态对应的健康描述
func StatusOf(state State) string {
	switch state {
	case StateUninitialized:
		return "not_initialized"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
