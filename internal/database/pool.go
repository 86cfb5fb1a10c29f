package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// =============================================================================
// 🗄️ 连接池句柄
// =============================================================================

// pool 一代连接池：gorm 句柄与其底层 sql.DB，只由 Manager 持有
type pool struct {
	gorm *gorm.DB
	sql  *sql.DB
}

// Ping 探活
func (p *pool) Ping(ctx context.Context) error {
	return p.sql.PingContext(ctx)
}

// Close 关闭连接池
func (p *pool) Close() error {
	return p.sql.Close()
}

// conn 在 timeout 内借用一个连接，借到后连接不再受 timeout 约束
func (p *pool) conn(ctx context.Context, timeout time.Duration) (*sql.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.sql.Conn(ctx)
}

// dial 打开并配置一代新连接池，按 MinConns 预热
func (m *Manager) dial(ctx context.Context) (*pool, error) {
	db, err := gorm.Open(m.dialector(), m.gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", m.config.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxOpenConns(m.config.MaxConns)
	sqlDB.SetMaxIdleConns(m.config.MaxConns)
	sqlDB.SetConnMaxLifetime(m.config.MaxConnLifetime)
	sqlDB.SetConnMaxIdleTime(m.config.MaxIdleTime)

	p := &pool{gorm: db, sql: sqlDB}
	if err := p.prewarm(ctx, m.config.MinConns); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("prewarm %d connections: %w", m.config.MinConns, err)
	}

	m.logger.Debug("database pool opened",
		zap.String("dsn", m.config.Redacted()),
		zap.Int("min_conns", m.config.MinConns),
		zap.Int("max_conns", m.config.MaxConns),
	)
	return p, nil
}

// prewarm 同时持有 n 个连接后归还，使其进入空闲队列
func (p *pool) prewarm(ctx context.Context, n int) error {
	conns := make([]*sql.Conn, 0, n)
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()

	for i := 0; i < n; i++ {
		c, err := p.sql.Conn(ctx)
		if err != nil {
			return err
		}
		conns = append(conns, c)
	}
	return nil
}

// =============================================================================
// 📊 统计信息
// =============================================================================

// PoolStats 连接池统计信息
type PoolStats struct {
	Generation         uint64        `json:"generation"`
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
	MaxIdleClosed      int64         `json:"max_idle_closed"`
	MaxLifetimeClosed  int64         `json:"max_lifetime_closed"`
}

func newPoolStats(generation uint64, stats sql.DBStats) PoolStats {
	return PoolStats{
		Generation:         generation,
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}
