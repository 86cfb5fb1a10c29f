package server

import (
	"encoding/json"
	"net/http"

	"github.com/BaSui01/connkeeper/internal/lifecycle"
)

// HealthSource 可上报健康状态的组件，database.Manager 与 cache.Manager 均满足
type HealthSource interface {
	Name() string
	HealthSnapshot() lifecycle.Health
}

// HealthReport /healthz 与 /readyz 的响应体
type HealthReport struct {
	Status     string                      `json:"status"`
	Components map[string]lifecycle.Health `json:"components"`
}

// Report 汇总各组件快照，不做 I/O。任一组件未连接时整体为 degraded。
func Report(sources ...HealthSource) (HealthReport, bool) {
	report := HealthReport{
		Status:     "healthy",
		Components: make(map[string]lifecycle.Health, len(sources)),
	}
	ok := true
	for _, s := range sources {
		h := s.HealthSnapshot()
		report.Components[s.Name()] = h
		if !h.Connected {
			ok = false
		}
	}
	if !ok {
		report.Status = "degraded"
	}
	return report, ok
}

// HealthHandler 渲染组件健康快照，始终返回 200，连接状态见响应体
func HealthHandler(sources ...HealthSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report, _ := Report(sources...)
		writeJSON(w, http.StatusOK, report)
	})
}

// ReadyHandler 全部组件已连接时 200，否则 503
func ReadyHandler(sources ...HealthSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report, ok := Report(sources...)
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	})
}

// LiveHandler 进程存活即返回 200
func LiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// VersionHandler 返回构建版本
func VersionHandler(version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
