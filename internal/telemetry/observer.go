package telemetry

import (
	"context"
	"time"

	"github.com/BaSui01/connkeeper/internal/lifecycle"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/BaSui01/connkeeper/internal/lifecycle"

// Observer 将生命周期事件记录为 OTel 指标，实现 lifecycle.Observer
type Observer struct {
	state           metric.Int64Gauge
	transitions     metric.Int64Counter
	connectAttempts metric.Int64Counter
	probeDuration   metric.Float64Histogram
	rebuilds        metric.Int64Counter
	waitDuration    metric.Float64Histogram
}

var _ lifecycle.Observer = (*Observer)(nil)

// NewObserver 在 mp 上创建指标
func NewObserver(mp metric.MeterProvider) (*Observer, error) {
	meter := mp.Meter(instrumentationName)
	o := &Observer{}
	var err error

	if o.state, err = meter.Int64Gauge("connkeeper.lifecycle.state",
		metric.WithDescription("Current lifecycle state as its numeric value")); err != nil {
		return nil, err
	}
	if o.transitions, err = meter.Int64Counter("connkeeper.lifecycle.transitions",
		metric.WithDescription("Lifecycle state transitions")); err != nil {
		return nil, err
	}
	if o.connectAttempts, err = meter.Int64Counter("connkeeper.lifecycle.connect_attempts",
		metric.WithDescription("Initial connect attempts")); err != nil {
		return nil, err
	}
	if o.probeDuration, err = meter.Float64Histogram("connkeeper.lifecycle.probe.duration",
		metric.WithDescription("Health probe latency"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if o.rebuilds, err = meter.Int64Counter("connkeeper.lifecycle.rebuilds",
		metric.WithDescription("Pool rebuild attempts")); err != nil {
		return nil, err
	}
	if o.waitDuration, err = meter.Float64Histogram("connkeeper.lifecycle.wait.duration",
		metric.WithDescription("Time callers spent waiting for a usable pool"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Observer) ObserveStateChange(name string, from, to lifecycle.State) {
	ctx := context.Background()
	o.state.Record(ctx, int64(to), metric.WithAttributes(attribute.String("manager", name)))
	o.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("manager", name),
		attribute.String("from_state", from.String()),
		attribute.String("to_state", to.String()),
	))
}

func (o *Observer) ObserveConnectAttempt(name string, err error) {
	o.connectAttempts.Add(context.Background(), 1, attrs(name, err))
}

func (o *Observer) ObserveProbe(name string, latency time.Duration, err error) {
	o.probeDuration.Record(context.Background(), latency.Seconds(), attrs(name, err))
}

func (o *Observer) ObserveRebuild(name string, err error) {
	o.rebuilds.Add(context.Background(), 1, attrs(name, err))
}

func (o *Observer) ObserveWait(name string, waited time.Duration, err error) {
	o.waitDuration.Record(context.Background(), waited.Seconds(), attrs(name, err))
}

func attrs(name string, err error) metric.MeasurementOption {
	result := "success"
	if err != nil {
		result = "error"
	}
	return metric.WithAttributes(
		attribute.String("manager", name),
		attribute.String("result", result),
	)
}
