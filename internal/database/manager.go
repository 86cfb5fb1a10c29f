package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/connkeeper/internal/lifecycle"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const instrumentationName = "github.com/BaSui01/connkeeper/internal/database"

// =============================================================================
// 🗄️ 数据库连接管理器
// =============================================================================

// Manager 数据库连接管理器。连接池由后台循环维护，
// 调用方只能通过 Acquire / ScopedSession 在回调内借用连接。
type Manager struct {
	config    Config
	core      *lifecycle.Manager[*pool]
	logger    *zap.Logger
	tracer    trace.Tracer
	dialector func() gorm.Dialector
	gormLog   gormlogger.Interface
}

// Option 配置 Manager
type Option func(*options)

type options struct {
	logger    *zap.Logger
	lifecycle lifecycle.Config
	dialector func() gorm.Dialector
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLifecycle 设置重试、探活与重建的时序
func WithLifecycle(cfg lifecycle.Config) Option {
	return func(o *options) {
		observer := o.lifecycle.Observer
		o.lifecycle = cfg
		if cfg.Observer == nil {
			o.lifecycle.Observer = observer
		}
	}
}

// WithObserver 设置生命周期事件观察者
func WithObserver(observer lifecycle.Observer) Option {
	return func(o *options) { o.lifecycle.Observer = observer }
}

// WithDialector 替换方言工厂，每次建连或重建都会调用一次
func WithDialector(fn func() gorm.Dialector) Option {
	return func(o *options) { o.dialector = fn }
}

// New 校验配置并创建管理器，状态为 Uninitialized。cfg 会被复制。
func New(cfg *Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.lifecycle.Name == "" {
		o.lifecycle.Name = "database"
	}

	m := &Manager{
		config:    *cfg,
		logger:    o.logger.With(zap.String("component", "database")),
		tracer:    otel.Tracer(instrumentationName),
		dialector: o.dialector,
	}
	if m.dialector == nil {
		m.dialector = m.config.dialector
	}
	m.gormLog = gormlogger.New(
		zap.NewStdLog(m.logger),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	core, err := lifecycle.New(o.lifecycle, m.dial, o.logger)
	if err != nil {
		return nil, err
	}
	m.core = core

	m.logger.Info("database manager initialized",
		zap.String("driver", m.config.Driver),
		zap.String("dsn", m.config.Redacted()),
		zap.String("manager_id", core.ID()),
	)
	return m, nil
}

func (m *Manager) gormConfig() *gorm.Config {
	return &gorm.Config{
		// 探活由生命周期管理器负责
		DisableAutomaticPing: true,
		Logger:               m.gormLog,
	}
}

// Config 返回配置副本
func (m *Manager) Config() Config {
	return m.config
}

// ID 返回实例 ID
func (m *Manager) ID() string {
	return m.core.ID()
}

// Start 开始后台建连。已启动或已关闭时为空操作。
func (m *Manager) Start() {
	m.core.Start()
}

// Close 停止后台循环并释放连接池，可重复调用
func (m *Manager) Close() error {
	return m.core.Close()
}

// =============================================================================
// 🎯 连接借用
// =============================================================================

// Acquire 等待连接可用后借用一个连接执行 fn，任何退出路径（包括 panic）都会归还连接。
// 借用受 AcquireTimeout 约束，等待连接可用不受约束，只受 ctx 控制。
func (m *Manager) Acquire(ctx context.Context, fn func(conn *sql.Conn) error) error {
	return m.withConn(ctx, "database.acquire", func(_ *pool, conn *sql.Conn) error {
		return fn(conn)
	})
}

// ScopedSession 在借用的连接上开启事务执行 fn：返回 nil 时提交，
// 返回错误或 panic 时回滚，连接只归还一次。
func (m *Manager) ScopedSession(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.withConn(ctx, "database.scoped_session", func(p *pool, conn *sql.Conn) error {
		return p.session(ctx, conn).Transaction(fn)
	})
}

// session 返回绑定到 conn 的 gorm 会话
func (p *pool) session(ctx context.Context, conn *sql.Conn) *gorm.DB {
	db := p.gorm.Session(&gorm.Session{Context: ctx})
	db.Statement.ConnPool = conn
	return db
}

// withConn 等待 Connected 并借用连接。借用期间连接池被重建时重新等待。
func (m *Manager) withConn(ctx context.Context, spanName string, fn func(p *pool, conn *sql.Conn) error) (err error) {
	ctx, span := m.tracer.Start(ctx, spanName)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	for {
		lease, err := m.core.Wait(ctx)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.Int64("db.pool.generation", int64(lease.Generation)))

		conn, err := lease.Pool.conn(ctx, m.config.AcquireTimeout)
		if err != nil {
			if ctx.Err() == nil && m.core.Stale(lease) {
				m.logger.Debug("pool replaced while acquiring, waiting for the next one", zap.Error(err))
				continue
			}
			return fmt.Errorf("acquire connection: %w", err)
		}

		defer m.release(conn)
		return fn(lease.Pool, conn)
	}
}

func (m *Manager) release(conn *sql.Conn) {
	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		m.logger.Warn("failed to release connection", zap.Error(err))
	}
}

// =============================================================================
// 🏥 健康状态
// =============================================================================

// IsConnected 等待连接可用后探活一次，任何失败都返回 false
func (m *Manager) IsConnected(ctx context.Context) bool {
	return m.core.Probe(ctx) == nil
}

// Health 健康快照，JSON 结构与 /healthz 输出一致
type Health = lifecycle.Health

// HealthSnapshot 返回当前健康状态，不做 I/O，不阻塞
func (m *Manager) HealthSnapshot() Health {
	return lifecycle.NewHealth(m.core.Snapshot())
}

// Name 返回生命周期名称
func (m *Manager) Name() string {
	return m.core.Name()
}

// Stats 返回当前连接池统计信息，未连接时 ok 为 false
func (m *Manager) Stats() (PoolStats, bool) {
	lease, ok := m.core.Current()
	if !ok {
		return PoolStats{}, false
	}
	return newPoolStats(lease.Generation, lease.Pool.sql.Stats()), true
}
