package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const instrumentationName = "github.com/BaSui01/connkeeper/internal/lifecycle"

// Pool 可探活、可关闭的连接池句柄
type Pool interface {
	Ping(ctx context.Context) error
	Close() error
}

// Dialer 打开一个新的连接池，探活由 Manager 负责
type Dialer[P Pool] func(ctx context.Context) (P, error)

// =============================================================================
// 🔌 生命周期管理器
// =============================================================================

// Manager 连接生命周期管理器
type Manager[P Pool] struct {
	id       string
	config   Config
	dial     Dialer[P]
	logger   *zap.Logger
	tracer   trace.Tracer
	observer Observer
	limiter  *rate.Limiter

	cur atomic.Pointer[status[P]]

	// 以下字段受 mu 保护
	mu            sync.Mutex
	pool          P
	hasPool       bool
	started       bool
	closing       bool
	connectCancel context.CancelFunc
	connectDone   chan struct{}
	monitorCancel context.CancelFunc
	monitorDone   chan struct{}

	closeDone chan struct{}
}

// New 创建生命周期管理器，状态为 Uninitialized，需调用 Start 开始建连
func New[P Pool](config Config, dial Dialer[P], logger *zap.Logger) (*Manager[P], error) {
	if dial == nil {
		return nil, &ConfigurationError{Field: "dialer", Reason: "is required"}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()

	id := uuid.NewString()
	m := &Manager[P]{
		id:       id,
		config:   config,
		dial:     dial,
		observer: config.Observer,
		tracer:   otel.Tracer(instrumentationName),
		limiter:  rate.NewLimiter(rate.Every(config.ErrorLogInterval), 1),
		logger: logger.With(
			zap.String("component", "lifecycle"),
			zap.String("manager", config.Name),
			zap.String("manager_id", id),
		),
		closeDone: make(chan struct{}),
	}
	m.cur.Store(&status[P]{
		state:   StateUninitialized,
		since:   time.Now(),
		changed: make(chan struct{}),
	})
	return m, nil
}

// ID 返回实例 ID
func (m *Manager[P]) ID() string {
	return m.id
}

// Name 返回管理器名称
func (m *Manager[P]) Name() string {
	return m.config.Name
}

// Config 返回生效的配置副本
func (m *Manager[P]) Config() Config {
	return m.config
}

// Start 进入 Connecting 并启动建连循环。已启动或已关闭时为空操作。
func (m *Manager[P]) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.closing {
		return
	}
	m.started = true

	next := *m.cur.Load()
	next.state = StateConnecting
	if !m.publishLocked(next) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.connectCancel = cancel
	m.connectDone = make(chan struct{})
	go m.connectLoop(ctx, m.connectDone)

	m.logger.Info("connection manager started",
		zap.Duration("retry_interval", m.config.ConnectRetryInterval),
		zap.Int("max_attempts", m.config.MaxConnectAttempts),
	)
}

// Wait 阻塞直到状态为 Connected，返回当前连接池。
// 管理器关闭时返回 ErrManagerClosed（建连次数耗尽时为 ErrConnectAttemptsExhausted），
// ctx 结束时返回 ctx.Err()。
func (m *Manager[P]) Wait(ctx context.Context) (Lease[P], error) {
	start := time.Now()
	for {
		s := m.cur.Load()
		switch s.state {
		case StateConnected:
			m.observer.ObserveWait(m.config.Name, time.Since(start), nil)
			return Lease[P]{Pool: s.pool, Generation: s.generation}, nil
		case StateClosed:
			err := ErrManagerClosed
			if s.exhausted {
				err = ErrConnectAttemptsExhausted
			}
			m.observer.ObserveWait(m.config.Name, time.Since(start), err)
			return Lease[P]{}, err
		case StateUninitialized, StateConnecting, StateDegraded:
		default:
			return Lease[P]{}, fmt.Errorf("unexpected connection state %s", s.state)
		}

		select {
		case <-s.changed:
		case <-ctx.Done():
			m.observer.ObserveWait(m.config.Name, time.Since(start), ctx.Err())
			return Lease[P]{}, ctx.Err()
		}
	}
}

// Current 非阻塞地返回当前连接池，仅在 Connected 时 ok 为 true
func (m *Manager[P]) Current() (Lease[P], bool) {
	s := m.cur.Load()
	if s.state != StateConnected {
		return Lease[P]{}, false
	}
	return Lease[P]{Pool: s.pool, Generation: s.generation}, true
}

// Stale 判断租约对应的连接池是否已被替换或关闭
func (m *Manager[P]) Stale(lease Lease[P]) bool {
	s := m.cur.Load()
	return s.state != StateConnected || s.generation != lease.Generation
}

// Probe 等待连接可用后执行一次探活
func (m *Manager[P]) Probe(ctx context.Context) error {
	lease, err := m.Wait(ctx)
	if err != nil {
		return err
	}
	return m.probe(ctx, lease.Pool)
}

// Snapshot 返回当前状态快照，只做一次原子读取
func (m *Manager[P]) Snapshot() Snapshot {
	return m.cur.Load().snapshot()
}

// Changed 返回在当前状态被替换时关闭的通道
func (m *Manager[P]) Changed() <-chan struct{} {
	return m.cur.Load().changed
}

// Close 关闭管理器：先停止健康监控，再停止建连循环，最后释放连接池。
// 可重复调用，后续调用等待首次关闭完成后返回 nil。
func (m *Manager[P]) Close() error {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		<-m.closeDone
		return nil
	}
	m.closing = true

	next := *m.cur.Load()
	next.state = StateClosed
	next.lastErr = nil
	m.publishLocked(next)

	monitorCancel, monitorDone := m.monitorCancel, m.monitorDone
	connectCancel, connectDone := m.connectCancel, m.connectDone
	m.mu.Unlock()

	if monitorCancel != nil {
		monitorCancel()
		<-monitorDone
	}
	if connectCancel != nil {
		connectCancel()
		<-connectDone
	}

	m.mu.Lock()
	pool, ok := m.takePoolLocked()
	m.mu.Unlock()

	var err error
	if ok {
		if cerr := pool.Close(); cerr != nil {
			err = fmt.Errorf("close pool: %w", cerr)
		}
	}

	m.logger.Info("connection manager closed")
	close(m.closeDone)
	return err
}

// =============================================================================
// 🔒 状态发布（调用方持有 mu）
// =============================================================================

// publishLocked 发布新状态并广播。Closed 为终态，之后的发布被拒绝。
func (m *Manager[P]) publishLocked(next status[P]) bool {
	prev := m.cur.Load()
	if prev.state == StateClosed {
		return false
	}

	if next.state != StateConnected {
		var zero P
		next.pool = zero
	}
	if next.state != prev.state {
		next.since = time.Now()
	}
	next.changed = make(chan struct{})

	m.cur.Store(&next)
	close(prev.changed)

	if next.state != prev.state {
		m.observer.ObserveStateChange(m.config.Name, prev.state, next.state)
		m.logger.Debug("connection state changed",
			zap.Stringer("from", prev.state),
			zap.Stringer("to", next.state),
		)
	}
	return true
}

func (m *Manager[P]) takePoolLocked() (P, bool) {
	pool, ok := m.pool, m.hasPool
	var zero P
	m.pool, m.hasPool = zero, false
	return pool, ok
}
