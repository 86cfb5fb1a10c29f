package migration

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Schema 用内嵌迁移文件描述表结构，可交给 database.Manager.CreateSchema
type Schema struct {
	config Config
	logger *zap.Logger
}

// NewSchema 创建迁移文件驱动的表结构描述
func NewSchema(cfg Config, logger *zap.Logger) *Schema {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Schema{
		config: cfg.withDefaults(),
		logger: logger.With(zap.String("component", "migration")),
	}
}

// Create 应用所有未执行的迁移
func (s *Schema) Create(ctx context.Context, conn *sql.Conn, _ *gorm.DB) error {
	return s.with(ctx, conn, func(m *DefaultMigrator) error {
		if err := m.Up(ctx); err != nil {
			return err
		}
		version, _, err := m.Version(ctx)
		if err == nil {
			s.logger.Info("migrations applied", zap.Uint("version", version))
		}
		return err
	})
}

// Recreate 清除 dirty 标记后回滚全部迁移再重新应用
func (s *Schema) Recreate(ctx context.Context, conn *sql.Conn, _ *gorm.DB) error {
	return s.with(ctx, conn, func(m *DefaultMigrator) error {
		version, dirty, err := m.Version(ctx)
		if err != nil {
			return err
		}
		if dirty {
			s.logger.Warn("migration state is dirty, forcing version", zap.Uint("version", version))
			if err := m.Force(ctx, int(version)); err != nil {
				return err
			}
		}
		if err := m.DownAll(ctx); err != nil {
			return err
		}
		return m.Up(ctx)
	})
}

func (s *Schema) with(ctx context.Context, conn *sql.Conn, fn func(m *DefaultMigrator) error) error {
	m, err := NewMigrator(ctx, conn, s.config)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			s.logger.Warn("failed to close migrator", zap.Error(err))
		}
	}()
	return fn(m)
}
