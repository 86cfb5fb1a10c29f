package database

import (
	"fmt"

	"github.com/BaSui01/connkeeper/internal/lifecycle"
)

// 与 lifecycle 共享的错误类型
var (
	ErrConfiguration            = lifecycle.ErrConfiguration
	ErrManagerClosed            = lifecycle.ErrManagerClosed
	ErrConnectAttemptsExhausted = lifecycle.ErrConnectAttemptsExhausted
)

type (
	ConfigurationError = lifecycle.ConfigurationError
	ConnectivityError  = lifecycle.ConnectivityError
)

// 建表阶段
const (
	StageCreate   = "create"
	StageRecreate = "recreate"
)

// SchemaSetupError 建表失败。不影响连接状态，调用方记录后继续运行。
type SchemaSetupError struct {
	Stage string
	Err   error
}

func (e *SchemaSetupError) Error() string {
	return fmt.Sprintf("schema setup failed at %s: %v", e.Stage, e.Err)
}

func (e *SchemaSetupError) Unwrap() error {
	return e.Err
}
