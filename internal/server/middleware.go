package server

import (
	"context"
	"net/http"
	"time"

	"github.com/BaSui01/connkeeper/internal/ctxkeys"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Middleware HTTP 中间件
type Middleware func(http.Handler) http.Handler

// Chain 将多个中间件串联，第一个在最外层
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// requestFields 返回请求 ID 与 TraceID 日志字段，缺失的省略
func requestFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id, ok := ctxkeys.RequestID(ctx); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	if id, ok := ctxkeys.TraceID(ctx); ok {
		fields = append(fields, zap.String("trace_id", id))
	}
	return fields
}

// statusRecorder 记录响应状态码
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Recovery panic 恢复中间件
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					fields := append([]zap.Field{
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
					}, requestFields(r.Context())...)
					logger.Error("panic recovered", fields...)
					http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID 透传或生成 X-Request-ID
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithRequestID(r.Context(), id)))
		})
	}
}

// RequestLogger 请求日志中间件，探活路径只记 Debug
func RequestLogger(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			log := logger.Info
			if knownPaths[r.URL.Path] {
				log = logger.Debug
			}
			fields := append([]zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			}, requestFields(r.Context())...)
			log("request", fields...)
		})
	}
}

// RequestRecorder 记录 HTTP 请求指标，由 metrics.Collector 实现
type RequestRecorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// Metrics 记录请求数与耗时。未注册的路径归为 "other"，避免标签基数膨胀。
func Metrics(recorder RequestRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			recorder.RecordHTTPRequest(r.Method, metricPath(r.URL.Path), rec.status, time.Since(start))
		})
	}
}

var knownPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/livez":   true,
	"/metrics": true,
	"/version": true,
}

func metricPath(path string) string {
	if knownPaths[path] {
		return path
	}
	return "other"
}

// OTelTracing 为每个请求创建服务端 span，并从请求头提取上游追踪上下文
func OTelTracing() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			tracer := otel.Tracer("connkeeper/http")
			ctx, span := tracer.Start(ctx, r.Method+" "+metricPath(r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()
			if sc := span.SpanContext(); sc.HasTraceID() {
				ctx = ctxkeys.WithTraceID(ctx, sc.TraceID().String())
			}

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.response.status_code", rec.status))
		})
	}
}
