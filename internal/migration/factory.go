package migration

import (
	"context"
	"database/sql"

	"github.com/BaSui01/connkeeper/internal/database"
)

// ConfigFor 按数据库配置推导迁移配置
func ConfigFor(dbCfg database.Config) (Config, error) {
	dialect, err := ParseDialect(dbCfg.Driver)
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()
	cfg.Dialect = dialect
	return cfg, nil
}

// WithMigrator 通过 mgr 借用连接创建迁移器执行 fn，结束后关闭迁移器并归还连接。
// 连接不可用时随 mgr 等待，受 ctx 控制。
func WithMigrator(ctx context.Context, mgr *database.Manager, cfg Config, fn func(Migrator) error) error {
	return mgr.Acquire(ctx, func(conn *sql.Conn) (err error) {
		m, err := NewMigrator(ctx, conn, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := m.Close(); err == nil {
				err = closeErr
			}
		}()
		return fn(m)
	})
}
