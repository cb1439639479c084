package api

import (
	"net/http"
	"time"

	"github.com/mmrzaf/rowgen/internal/logging"
	"github.com/mmrzaf/rowgen/internal/metrics"
)

// Routes mounts the v1 API, health and metrics endpoints.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", Healthz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/scenarios", h.ListScenarios)
	mux.HandleFunc("GET /api/v1/scenarios/{id}", h.GetScenario)
	mux.HandleFunc("GET /api/v1/providers", h.ListProviders)

	mux.HandleFunc("GET /api/v1/targets", h.ListTargets)
	mux.HandleFunc("POST /api/v1/targets", h.CreateTarget)
	mux.HandleFunc("GET /api/v1/targets/{id}", h.GetTarget)
	mux.HandleFunc("PUT /api/v1/targets/{id}", h.UpdateTarget)
	mux.HandleFunc("DELETE /api/v1/targets/{id}", h.DeleteTarget)
	mux.HandleFunc("POST /api/v1/targets/{id}/test", h.TestTarget)
	mux.HandleFunc("GET /api/v1/targets/{id}/checks", h.ListTargetChecks)

	mux.HandleFunc("POST /api/v1/runs", h.CreateRun)
	mux.HandleFunc("POST /api/v1/runs/plan", h.PlanRun)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/logs", h.GetRunLogs)
	return mux
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": time.Since(started).Milliseconds(),
			"remote":      r.RemoteAddr,
		}
		switch {
		case sw.status >= 500:
			logger.Errorw("request.completed", fields)
		case sw.status >= 400:
			logger.Warnw("request.completed", fields)
		default:
			logger.Infow("request.completed", fields)
		}
	})
}
