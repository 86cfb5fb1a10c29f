package metrics

import (
	"strconv"
	"time"

	"github.com/BaSui01/connkeeper/internal/database"
	"github.com/BaSui01/connkeeper/internal/lifecycle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

var allStates = []lifecycle.State{
	lifecycle.StateUninitialized,
	lifecycle.StateConnecting,
	lifecycle.StateConnected,
	lifecycle.StateDegraded,
	lifecycle.StateClosed,
}

// Collector 指标收集器，同时实现 lifecycle.Observer
type Collector struct {
	namespace string

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 生命周期指标
	state            *prometheus.GaugeVec
	transitionsTotal *prometheus.CounterVec
	connectAttempts  *prometheus.CounterVec
	probeDuration    *prometheus.HistogramVec
	rebuildsTotal    *prometheus.CounterVec
	waitDuration     *prometheus.HistogramVec

	logger *zap.Logger
}

var _ lifecycle.Observer = (*Collector)(nil)

// NewCollector 创建指标收集器，指标注册到默认 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		namespace: namespace,
		logger:    logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.state = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lifecycle_state",
			Help:      "Current connection state, 1 for the active state",
		},
		[]string{"manager", "state"},
	)

	c.transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_state_transitions_total",
			Help:      "Total number of connection state transitions",
		},
		[]string{"manager", "from_state", "to_state"},
	)

	c.connectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_connect_attempts_total",
			Help:      "Total number of connect attempts",
		},
		[]string{"manager", "result"},
	)

	c.probeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lifecycle_probe_duration_seconds",
			Help:      "Liveness probe duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"manager", "result"},
	)

	c.rebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_rebuilds_total",
			Help:      "Total number of pool rebuild attempts",
		},
		[]string{"manager", "result"},
	)

	c.waitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lifecycle_wait_duration_seconds",
			Help:      "Time callers spent waiting for a usable connection",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1, 5, 30},
		},
		[]string{"manager", "result"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// 🔌 生命周期事件
// =============================================================================

func (c *Collector) ObserveStateChange(name string, from, to lifecycle.State) {
	c.transitionsTotal.WithLabelValues(name, from.String(), to.String()).Inc()
	for _, s := range allStates {
		v := 0.0
		if s == to {
			v = 1
		}
		c.state.WithLabelValues(name, s.String()).Set(v)
	}
}

func (c *Collector) ObserveConnectAttempt(name string, err error) {
	c.connectAttempts.WithLabelValues(name, result(err)).Inc()
}

func (c *Collector) ObserveProbe(name string, latency time.Duration, err error) {
	c.probeDuration.WithLabelValues(name, result(err)).Observe(latency.Seconds())
}

func (c *Collector) ObserveRebuild(name string, err error) {
	c.rebuildsTotal.WithLabelValues(name, result(err)).Inc()
}

func (c *Collector) ObserveWait(name string, waited time.Duration, err error) {
	c.waitDuration.WithLabelValues(name, result(err)).Observe(waited.Seconds())
}

// =============================================================================
// 🗄️ 连接池指标
// =============================================================================

// RegisterDBPool 注册按抓取时读取的连接池 Gauge，未连接时上报 0
func (c *Collector) RegisterDBPool(name string, stats func() (database.PoolStats, bool)) {
	gauge := func(metric, help string, pick func(database.PoolStats) float64) {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   c.namespace,
			Name:        metric,
			Help:        help,
			ConstLabels: prometheus.Labels{"database": name},
		}, func() float64 {
			s, ok := stats()
			if !ok {
				return 0
			}
			return pick(s)
		})
	}

	gauge("db_connections_open", "Number of open database connections",
		func(s database.PoolStats) float64 { return float64(s.OpenConnections) })
	gauge("db_connections_in_use", "Number of database connections in use",
		func(s database.PoolStats) float64 { return float64(s.InUse) })
	gauge("db_connections_idle", "Number of idle database connections",
		func(s database.PoolStats) float64 { return float64(s.Idle) })
	gauge("db_pool_generation", "Generation of the current database pool",
		func(s database.PoolStats) float64 { return float64(s.Generation) })
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码归类
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return strconv.Itoa(code)
	}
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
