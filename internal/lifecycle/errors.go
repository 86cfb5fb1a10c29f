package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration 配置缺失或无效
	ErrConfiguration = errors.New("invalid configuration")

	// ErrManagerClosed 管理器已关闭
	ErrManagerClosed = errors.New("connection manager closed")

	// ErrConnectAttemptsExhausted 达到最大建连次数后管理器关闭
	ErrConnectAttemptsExhausted = fmt.Errorf("connect attempts exhausted: %w", ErrManagerClosed)
)

// ConfigurationError 配置错误，errors.Is(err, ErrConfiguration) 为 true
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// 连接错误发生的阶段
const (
	OpOpen    = "open"
	OpProbe   = "probe"
	OpRebuild = "rebuild"
)

// ConnectivityError 暂时性连接错误，只体现在 LastError 中，不会返回给等待方
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// IsProbeFailure 判断错误链中是否包含探活失败
func IsProbeFailure(err error) bool {
	for err != nil {
		var ce *ConnectivityError
		if !errors.As(err, &ce) {
			return false
		}
		if ce.Op == OpProbe {
			return true
		}
		err = ce.Err
	}
	return false
}
