package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/BaSui01/connkeeper/testutil"
	"github.com/BaSui01/connkeeper/testutil/mocks"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// TestProperty_ConnectedOnlyDegrades 任意探活结果序列下，Connected 的后继只能是 Degraded 或 Closed
func TestProperty_ConnectedOnlyDegrades(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		results := rapid.SliceOfN(rapid.Bool(), 1, 8).Draw(rt, "probeResults")

		script := make([]error, len(results))
		for i, ok := range results {
			if !ok {
				script[i] = errors.New("probe failed")
			}
		}

		obs := &recordingObserver{}
		backend := mocks.NewMockBackend().ScriptPings(script...)
		m, err := New(Config{
			Name:                 "property",
			ConnectRetryInterval: time.Millisecond,
			HealthCheckInterval:  time.Millisecond,
			RebuildRetryInterval: time.Millisecond,
			Observer:             obs,
		}, backend.Dial, zap.NewNop())
		if err != nil {
			rt.Fatalf("new manager: %v", err)
		}

		m.Start()
		if !testutil.WaitFor(func() bool { return backend.PendingPings() == 0 }, 5*time.Second) {
			rt.Fatalf("probe script not consumed")
		}
		if err := m.Close(); err != nil {
			rt.Fatalf("close: %v", err)
		}

		for _, tr := range obs.Transitions() {
			if tr[1] == StateUninitialized {
				rt.Fatalf("transition into uninitialized: %v -> %v", tr[0], tr[1])
			}
			if tr[0] == StateConnected && tr[1] != StateDegraded && tr[1] != StateClosed {
				rt.Fatalf("connected may only degrade or close, got %v -> %v", tr[0], tr[1])
			}
			if tr[0] == StateClosed {
				rt.Fatalf("transition out of closed: %v -> %v", tr[0], tr[1])
			}
		}
		if open := backend.OpenPools(); open != 0 {
			rt.Fatalf("%d pools left open after close", open)
		}
	})
}
