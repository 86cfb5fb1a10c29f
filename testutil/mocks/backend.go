// =============================================================================
// 🔌 MockBackend - 可编排的连接池后端
// =============================================================================
// 模拟一个可能宕机的后端：拨号与探活结果按脚本依次返回，
// 所有打开过的连接池都会被记录，用于检查重复关闭与泄漏。
//
// 使用方法:
//
//	backend := mocks.NewMockBackend().FailDials(errDown, errDown).ScriptPings(nil, errDown)
//	manager, _ := lifecycle.New(cfg, backend.Dial, logger)
//
// =============================================================================
package mocks

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed 在已关闭的连接池上探活
var ErrPoolClosed = errors.New("mock pool closed")

// MockBackend 可编排的后端
type MockBackend struct {
	mu sync.Mutex

	// 脚本
	dialErrs []error
	pingErrs []error
	gate     chan struct{}

	// 记录
	dials int
	pings int
	pools []*MockPool
}

// NewMockBackend 创建后端，默认拨号与探活均成功
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// FailDials 追加拨号结果脚本，用完后拨号成功
func (b *MockBackend) FailDials(errs ...error) *MockBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dialErrs = append(b.dialErrs, errs...)
	return b
}

// ScriptPings 追加探活结果脚本（nil 表示成功），所有连接池共享，用完后探活成功
func (b *MockBackend) ScriptPings(errs ...error) *MockBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pingErrs = append(b.pingErrs, errs...)
	return b
}

// Block 使后续拨号阻塞，直到返回的 release 被调用或 ctx 结束
func (b *MockBackend) Block() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gate = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.gate = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

// Dial 打开一个新的 MockPool
func (b *MockBackend) Dial(ctx context.Context) (*MockPool, error) {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.dials++
	if len(b.dialErrs) > 0 {
		err := b.dialErrs[0]
		b.dialErrs = b.dialErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	pool := &MockPool{ID: len(b.pools) + 1, backend: b}
	b.pools = append(b.pools, pool)
	return pool, nil
}

func (b *MockBackend) nextPing() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pings++
	if len(b.pingErrs) == 0 {
		return nil
	}
	err := b.pingErrs[0]
	b.pingErrs = b.pingErrs[1:]
	return err
}

// Dials 返回拨号次数
func (b *MockBackend) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

// Pings 返回探活次数
func (b *MockBackend) Pings() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pings
}

// PendingPings 返回尚未消费的探活脚本数量
func (b *MockBackend) PendingPings() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pingErrs)
}

// Pools 返回所有打开过的连接池
func (b *MockBackend) Pools() []*MockPool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*MockPool(nil), b.pools...)
}

// OpenPools 返回尚未关闭的连接池数量
func (b *MockBackend) OpenPools() int {
	open := 0
	for _, p := range b.Pools() {
		if !p.Closed() {
			open++
		}
	}
	return open
}

// =============================================================================
// 🏊 MockPool
// =============================================================================

// MockPool 模拟连接池
type MockPool struct {
	ID int

	backend    *MockBackend
	mu         sync.Mutex
	closeCalls int
}

// Ping 按后端脚本返回探活结果
func (p *MockPool) Ping(ctx context.Context) error {
	if p.Closed() {
		return ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.backend.nextPing()
}

// Close 关闭连接池
func (p *MockPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCalls++
	return nil
}

// Closed 是否已关闭
func (p *MockPool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCalls > 0
}

// CloseCalls 返回 Close 调用次数
func (p *MockPool) CloseCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCalls
}
