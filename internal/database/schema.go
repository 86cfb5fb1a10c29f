package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// =============================================================================
// 🧱 表结构初始化
// =============================================================================

// SchemaDescriptor 描述一组表的创建与重建。
// conn 为借用的连接，db 为绑定在 conn 上的 gorm 会话。
type SchemaDescriptor interface {
	// Create 增量创建，已存在的表保持不变
	Create(ctx context.Context, conn *sql.Conn, db *gorm.DB) error
	// Recreate 删除后重新创建
	Recreate(ctx context.Context, conn *sql.Conn, db *gorm.DB) error
}

// Models 由 gorm 模型描述的表结构
type Models []any

// Create 在事务中 AutoMigrate
func (ms Models) Create(_ context.Context, _ *sql.Conn, db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(ms...)
	})
}

// Recreate 在事务中删除并重建所有表
func (ms Models) Recreate(_ context.Context, _ *sql.Conn, db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Migrator().DropTable(ms...); err != nil {
			return fmt.Errorf("drop tables: %w", err)
		}
		return tx.AutoMigrate(ms...)
	})
}

// CreateSchema 等待连接可用后创建表结构；失败时删除重建；
// 仍失败则记录日志并返回 *SchemaSetupError。连接状态不受影响。
func (m *Manager) CreateSchema(ctx context.Context, schema SchemaDescriptor) error {
	if schema == nil {
		return nil
	}
	logger := m.logger.With(zap.String("schema", fmt.Sprintf("%T", schema)))

	logger.Info("creating schema")
	err := m.applySchema(ctx, schema.Create)
	if err == nil {
		logger.Info("schema created")
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, ErrManagerClosed) {
		return &SchemaSetupError{Stage: StageCreate, Err: err}
	}

	logger.Error("failed to create schema, dropping and recreating", zap.Error(err))
	if err = m.applySchema(ctx, schema.Recreate); err == nil {
		logger.Info("schema recreated")
		return nil
	}

	logger.Error("failed to recreate schema", zap.Error(err))
	logger.Warn("continuing without schema, it may need to be created manually")
	return &SchemaSetupError{Stage: StageRecreate, Err: err}
}

func (m *Manager) applySchema(ctx context.Context, step func(context.Context, *sql.Conn, *gorm.DB) error) error {
	return m.withConn(ctx, "database.schema", func(p *pool, conn *sql.Conn) error {
		return step(ctx, conn, p.session(ctx, conn))
	})
}
