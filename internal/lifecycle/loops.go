package lifecycle

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// =============================================================================
// 🔁 建连循环
// =============================================================================

func (m *Manager[P]) connectLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for attempt := 1; ; attempt++ {
		pool, err := m.open(ctx, attempt)
		if ctx.Err() != nil {
			if err == nil {
				m.closePool(pool)
			}
			return
		}
		m.observer.ObserveConnectAttempt(m.config.Name, err)

		if err == nil {
			if !m.promote(pool, true) {
				m.closePool(pool)
			}
			return
		}

		m.recordFailure(StateConnecting, err)

		if limit := m.config.MaxConnectAttempts; limit > 0 && attempt >= limit {
			m.exhaust(attempt)
			return
		}
		if !sleepCtx(ctx, m.config.ConnectRetryInterval) {
			return
		}
	}
}

// exhaust 建连次数耗尽，进入终态 Closed 并保留最后的错误
func (m *Manager[P]) exhaust(attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := *m.cur.Load()
	next.state = StateClosed
	next.exhausted = true
	if m.publishLocked(next) {
		m.logger.Error("giving up connecting",
			zap.Int("attempts", attempts),
			zap.String("last_error", lastMessage(next.lastErr)),
		)
	}
}

// =============================================================================
// 🏥 健康监控循环
// =============================================================================

func (m *Manager[P]) monitorLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if !sleepCtx(ctx, m.config.HealthCheckInterval) {
			return
		}

		s := m.cur.Load()
		if s.state != StateConnected {
			continue
		}
		err := m.probe(ctx, s.pool)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			m.clearLastError()
			continue
		}

		m.recordFailure(StateDegraded, err)
		m.recover(ctx)
	}
}

// recover 重建连接池，失败后按 RebuildRetryInterval 重试，直到成功或取消
func (m *Manager[P]) recover(ctx context.Context) {
	for {
		err := m.rebuild(ctx)
		if err == nil || ctx.Err() != nil || errors.Is(err, ErrManagerClosed) {
			return
		}
		m.recordFailure(StateDegraded, err)
		if !sleepCtx(ctx, m.config.RebuildRetryInterval) {
			return
		}
	}
}

// rebuild 关闭旧连接池后打开并探活新连接池
func (m *Manager[P]) rebuild(ctx context.Context) error {
	m.mu.Lock()
	stale, ok := m.takePoolLocked()
	m.mu.Unlock()
	if ok {
		m.closePool(stale)
	}

	pool, err := m.open(ctx, 0)
	if ctx.Err() != nil {
		if err == nil {
			m.closePool(pool)
		}
		return ctx.Err()
	}
	if err != nil {
		err = &ConnectivityError{Op: OpRebuild, Err: err}
		m.observer.ObserveRebuild(m.config.Name, err)
		return err
	}
	m.observer.ObserveRebuild(m.config.Name, nil)

	if !m.promote(pool, false) {
		m.closePool(pool)
		return ErrManagerClosed
	}
	return nil
}

// =============================================================================
// 📝 状态迁移
// =============================================================================

// promote 保存连接池并进入 Connected。首次建连时清除 LastError 并启动健康监控；
// 重建成功时保留 LastError，直到下一次探活成功。
func (m *Manager[P]) promote(pool P, initial bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.cur.Load()
	next := *prev
	next.state = StateConnected
	next.pool = pool
	next.generation++
	next.attempts = 0
	if initial {
		next.lastErr = nil
	}
	if !m.publishLocked(next) {
		return false
	}
	m.pool, m.hasPool = pool, true

	if initial {
		ctx, cancel := context.WithCancel(context.Background())
		m.monitorCancel = cancel
		m.monitorDone = make(chan struct{})
		go m.monitorLoop(ctx, m.monitorDone)

		m.logger.Info("connected",
			zap.Int("attempts", prev.attempts+1),
			zap.Duration("health_check_interval", m.config.HealthCheckInterval),
		)
	} else {
		m.logger.Info("connection rebuilt", zap.Uint64("generation", next.generation))
	}
	return true
}

// recordFailure 记录失败并发布状态。Connecting 期间日志按实例限流。
func (m *Manager[P]) recordFailure(state State, err error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.cur.Load()
	next := *prev
	next.state = state
	next.attempts++

	le := &LastError{Message: err.Error(), At: now}
	if prev.lastErr != nil {
		le.LoggedAt = prev.lastErr.LoggedAt
	}

	switch {
	case state == StateConnecting && m.limiter.AllowN(now, 1):
		le.LoggedAt = now
		m.logger.Warn("failed to connect, retrying",
			zap.Error(err),
			zap.Int("attempt", next.attempts),
			zap.Duration("retry_interval", m.config.ConnectRetryInterval),
		)
	case state == StateDegraded:
		le.LoggedAt = now
		m.logger.Error("connection unhealthy, rebuilding",
			zap.Error(err),
			zap.Int("attempt", next.attempts),
			zap.Bool("probe_failure", IsProbeFailure(err)),
		)
	}

	next.lastErr = le
	m.publishLocked(next)
}

// clearLastError 探活成功后清除 LastError
func (m *Manager[P]) clearLastError() {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.cur.Load()
	if prev.lastErr == nil || prev.state != StateConnected {
		return
	}
	next := *prev
	next.lastErr = nil
	m.publishLocked(next)
	m.logger.Info("connection healthy again")
}

// =============================================================================
// 🔧 连接池操作
// =============================================================================

// open 拨号并探活，探活失败时关闭新连接池
func (m *Manager[P]) open(ctx context.Context, attempt int) (P, error) {
	ctx, span := m.tracer.Start(ctx, "lifecycle.open", trace.WithAttributes(
		attribute.String("lifecycle.name", m.config.Name),
		attribute.Int("lifecycle.attempt", attempt),
	))
	defer span.End()

	var zero P
	pool, err := m.dial(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return zero, &ConnectivityError{Op: OpOpen, Err: err}
	}

	if err := m.probe(ctx, pool); err != nil {
		m.closePool(pool)
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
		return zero, err
	}
	return pool, nil
}

func (m *Manager[P]) probe(ctx context.Context, pool P) error {
	ctx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	defer cancel()

	ctx, span := m.tracer.Start(ctx, "lifecycle.probe", trace.WithAttributes(
		attribute.String("lifecycle.name", m.config.Name),
	))
	defer span.End()

	start := time.Now()
	err := pool.Ping(ctx)
	m.observer.ObserveProbe(m.config.Name, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
		return &ConnectivityError{Op: OpProbe, Err: err}
	}
	return nil
}

func (m *Manager[P]) closePool(pool P) {
	if err := pool.Close(); err != nil {
		m.logger.Warn("failed to close pool", zap.Error(err))
	}
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func lastMessage(le *LastError) string {
	if le == nil {
		return ""
	}
	return le.Message
}
