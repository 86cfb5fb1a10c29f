package lifecycle

import (
	"fmt"
	"time"
)

// State 连接生命周期状态
type State int32

const (
	StateUninitialized State = iota
	StateConnecting
	StateConnected
	StateDegraded
	StateClosed
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// MarshalText 以名称形式序列化状态
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 解析状态名称
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateUninitialized, StateConnecting, StateConnected, StateDegraded, StateClosed} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// LastError 最近一次连接失败
type LastError struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
	// LoggedAt 最近一次写日志的时间，用于限流
	LoggedAt time.Time `json:"logged_at,omitempty"`
}

// Snapshot 对外发布的状态快照，读取不阻塞
type Snapshot struct {
	State     State      `json:"state"`
	LastError *LastError `json:"last_error,omitempty"`
	// Since 进入当前状态的时间
	Since time.Time `json:"since"`
	// Attempts 自上次连接成功以来失败的尝试次数
	Attempts int `json:"attempts"`
	// Generation 连接池代数，每次建连或重建成功加一
	Generation uint64 `json:"generation"`
	// Exhausted 因达到最大建连次数而关闭
	Exhausted bool `json:"exhausted,omitempty"`
}

// Lease 从 Wait 获得的连接池引用，仅在 Generation 未变化时有效
type Lease[P Pool] struct {
	Pool       P
	Generation uint64
}

// status 内部不可变状态，pool 仅在 StateConnected 时有效
type status[P Pool] struct {
	state      State
	pool       P
	lastErr    *LastError
	since      time.Time
	attempts   int
	generation uint64
	exhausted  bool

	// changed 在本状态被替换时关闭
	changed chan struct{}
}

func (s *status[P]) snapshot() Snapshot {
	snap := Snapshot{
		State:      s.state,
		Since:      s.since,
		Attempts:   s.attempts,
		Generation: s.generation,
		Exhausted:  s.exhausted,
	}
	if s.lastErr != nil {
		le := *s.lastErr
		snap.LastError = &le
	}
	return snap
}
