package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/connkeeper/internal/lifecycle"
	"github.com/BaSui01/connkeeper/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func testLifecycle() lifecycle.Config {
	return lifecycle.Config{
		ConnectRetryInterval: 10 * time.Millisecond,
		HealthCheckInterval:  time.Hour,
		RebuildRetryInterval: 10 * time.Millisecond,
		ErrorLogInterval:     time.Second,
		ProbeTimeout:         time.Second,
	}
}

func newTestManager(t *testing.T, addr string, lc lifecycle.Config) *Manager {
	t.Helper()

	config := DefaultConfig()
	config.Addr = addr
	config.DefaultTTL = time.Minute
	config.MaxRetries = -1

	manager, err := NewManager(config, zap.NewNop(), WithLifecycle(lc))
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	t.Helper()

	mr := miniredis.RunT(t)
	manager := newTestManager(t, mr.Addr(), testLifecycle())
	manager.Start()
	require.NoError(t, manager.Ping(testutil.TestContext(t)))
	return mr, manager
}

func TestNewManager_InvalidConfig(t *testing.T) {
	_, err := NewManager(Config{}, nil)
	assert.ErrorIs(t, err, lifecycle.ErrConfiguration)

	_, err = NewManager(Config{Addr: "localhost:6379", PoolSize: -1}, nil)
	assert.ErrorIs(t, err, lifecycle.ErrConfiguration)
}

func TestNewManager_NoIO(t *testing.T) {
	manager, err := NewManager(Config{Addr: "127.0.0.1:1"}, nil)
	require.NoError(t, err)
	defer manager.Close()

	assert.Equal(t, "cache", manager.Name())
	assert.Equal(t, lifecycle.StateUninitialized, manager.HealthSnapshot().State)
}

func TestManager_SetAndGet(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := testutil.TestContext(t)

	require.NoError(t, manager.Set(ctx, "test-key", "test-value", time.Minute))

	value, err := manager.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.Equal(t, "test-value", value)
}

func TestManager_GetNonExistent(t *testing.T) {
	_, manager := setupTestRedis(t)

	value, err := manager.Get(testutil.TestContext(t), "non-existent")
	assert.True(t, IsCacheMiss(err))
	assert.Empty(t, value)
}

func TestManager_DefaultTTL(t *testing.T) {
	mr, manager := setupTestRedis(t)

	require.NoError(t, manager.Set(testutil.TestContext(t), "k", "v", 0))
	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestManager_DeleteAndExists(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := testutil.TestContext(t)

	require.NoError(t, manager.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, manager.Set(ctx, "b", "2", time.Minute))

	n, err := manager.Exists(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, manager.Delete(ctx, "a"))
	require.NoError(t, manager.Delete(ctx))

	_, err = manager.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestManager_JSON(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := testutil.TestContext(t)

	type testData struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}
	data := testData{Name: "test", Value: 123}

	require.NoError(t, manager.SetJSON(ctx, "test-json", data, time.Minute))

	var result testData
	require.NoError(t, manager.GetJSON(ctx, "test-json", &result))
	assert.Equal(t, data, result)

	var missing map[string]any
	assert.ErrorIs(t, manager.GetJSON(ctx, "non-existent", &missing), ErrCacheMiss)

	assert.Error(t, manager.SetJSON(ctx, "test-invalid", make(chan int), time.Minute))

	require.NoError(t, manager.Set(ctx, "test-invalid-json", "not a json", time.Minute))
	assert.Error(t, manager.GetJSON(ctx, "test-invalid-json", &missing))
}

func TestManager_TTL(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := testutil.TestContext(t)

	require.NoError(t, manager.Set(ctx, "test-ttl", "value", 100*time.Millisecond))
	value, err := manager.Get(ctx, "test-ttl")
	require.NoError(t, err)
	assert.Equal(t, "value", value)

	mr.FastForward(200 * time.Millisecond)

	_, err = manager.Get(ctx, "test-ttl")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, manager.Set(ctx, "test-expire", "value", time.Minute))
	require.NoError(t, manager.Expire(ctx, "test-expire", 5*time.Second))
	assert.Equal(t, 5*time.Second, mr.TTL("test-expire"))
}

func TestManager_GetStats(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := testutil.TestContext(t)

	require.NoError(t, manager.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, manager.Set(ctx, "b", "2", time.Minute))

	stats, err := manager.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Keys)
	assert.GreaterOrEqual(t, stats.Connections, 1)
	assert.Equal(t, uint64(1), stats.Generation)
}

func TestParseInfo(t *testing.T) {
	info := "# Stats\r\nkeyspace_hits:42\r\nkeyspace_misses:7\r\n\r\n" +
		"# Memory\r\nused_memory:1024\r\nmaxmemory:0\r\n" +
		"# Clients\r\nconnected_clients:3\r\nbogus\r\n"

	assert.Equal(t, &Stats{Hits: 42, Misses: 7, UsedMemory: 1024, Connections: 3}, parseInfo(info))
}

func TestManager_WaitsForRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	manager := newTestManager(t, addr, testLifecycle())
	manager.Start()

	ctx := testutil.TestContext(t)
	got := make(chan error, 1)
	go func() {
		_, err := manager.Get(ctx, "k")
		got <- err
	}()

	testutil.AssertEventuallyTrue(t, func() bool {
		return manager.HealthSnapshot().LastError != ""
	}, time.Second)
	assert.Equal(t, lifecycle.StateConnecting, manager.HealthSnapshot().State)

	require.NoError(t, mr.Restart())

	select {
	case err := <-got:
		assert.ErrorIs(t, err, ErrCacheMiss)
	case <-time.After(5 * time.Second):
		t.Fatal("Get did not return after redis came up")
	}
	assert.Equal(t, "healthy", manager.HealthSnapshot().Status)
}

func TestManager_RebuildAfterOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := testLifecycle()
	lc.HealthCheckInterval = 20 * time.Millisecond

	manager := newTestManager(t, mr.Addr(), lc)
	manager.Start()
	ctx := testutil.TestContext(t)
	require.NoError(t, manager.Set(ctx, "k", "v", time.Minute))

	mr.Close()
	testutil.AssertEventuallyTrue(t, func() bool {
		return manager.HealthSnapshot().State == lifecycle.StateDegraded
	}, 2*time.Second)

	require.NoError(t, mr.Restart())
	testutil.AssertEventuallyTrue(t, func() bool {
		h := manager.HealthSnapshot()
		return h.Connected && h.Generation == 2
	}, 5*time.Second)

	value, err := manager.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestManager_AfterClose(t *testing.T) {
	_, manager := setupTestRedis(t)
	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	_, err := manager.Get(testutil.TestContext(t), "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, "closed", manager.HealthSnapshot().Status)
}

func TestManager_ConcurrentOperations(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := testutil.TestContext(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("concurrent-%d", id)
			assert.NoError(t, manager.Set(ctx, key, "value", time.Minute))
			value, err := manager.Get(ctx, key)
			assert.NoError(t, err)
			assert.Equal(t, "value", value)
		}(i)
	}
	wg.Wait()
}
