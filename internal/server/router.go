package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig 路由依赖
type RouterConfig struct {
	// Sources 参与 /healthz 与 /readyz 汇总的组件
	Sources []HealthSource
	// Recorder 为空时不记录请求指标
	Recorder RequestRecorder
	// MetricsHandler 为空时使用默认 Registry
	MetricsHandler http.Handler
	Version        string
	Logger         *zap.Logger
}

// NewRouter 构建健康检查与指标路由
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", HealthHandler(cfg.Sources...))
	mux.Handle("GET /readyz", ReadyHandler(cfg.Sources...))
	mux.Handle("GET /livez", LiveHandler())
	mux.Handle("GET /version", VersionHandler(cfg.Version))
	mux.Handle("GET /metrics", metricsHandler)

	middlewares := []Middleware{
		RequestID(),
		Recovery(logger),
		OTelTracing(),
	}
	if cfg.Recorder != nil {
		middlewares = append(middlewares, Metrics(cfg.Recorder))
	}
	middlewares = append(middlewares, RequestLogger(logger))

	return Chain(mux, middlewares...)
}
