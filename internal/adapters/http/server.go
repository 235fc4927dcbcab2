// Package http exposes the readiness and liveness surface consumed by
// orchestration probes, plus the Prometheus metrics endpoint.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gantryio/gantry/internal/health"
)

// Server wires the health checker to the HTTP routes.
type Server struct {
	checker *health.Checker
	logger  *slog.Logger
}

// NewHandler builds the service router.
//
//	GET /health          liveness, no dependency checks
//	GET /health/ready    readiness, 200/503 by aggregate verdict
//	GET /health/cache    detailed cache check
//	GET /health/workflow detailed workflow engine check
//	GET /metrics         prometheus exposition
func NewHandler(checker *health.Checker, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	s := &Server{checker: checker, logger: logger}

	r := chi.NewRouter()
	r.Get("/health", s.Liveness)
	r.Get("/health/ready", s.Readiness)
	r.Get("/health/cache", s.CacheHealth)
	r.Get("/health/workflow", s.WorkflowHealth)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// Liveness reports that the process is running. It performs no dependency
// checks, so a degraded dependency can never fail a liveness probe.
func (s *Server) Liveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "api",
	})
}

// Readiness runs the full dependency check. A not_ready verdict surfaces as
// 503 with the detailed breakdown; the endpoint itself never fails.
func (s *Server) Readiness(w http.ResponseWriter, r *http.Request) {
	report := s.checker.CheckAll(r.Context())

	code := http.StatusOK
	if report.Status == health.NotReady {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, report)
}

// CacheHealth returns the detailed cache check. Degraded and disabled are
// successful answers; only unhealthy maps to 503.
func (s *Server) CacheHealth(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.checker.CheckCacheDetailed(r.Context()))
}

// WorkflowHealth returns the detailed workflow engine check.
func (s *Server) WorkflowHealth(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.checker.CheckWorkflowDetailed(r.Context()))
}

func (s *Server) writeResult(w http.ResponseWriter, result health.Result) {
	code := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, result)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
