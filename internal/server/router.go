package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter constructs a ServeMux with the sentinel API routes registered.
func NewRouter(h *Handler, auth *AuthMiddleware) http.Handler {
	mux := http.NewServeMux()

	// Health and metrics are never behind auth.
	mux.HandleFunc("GET /healthz", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/auth/token", auth.IssueToken)

	// Monitor lifecycle
	mux.HandleFunc("POST /api/v1/monitor/start", auth.RequireAuth(h.StartMonitor))
	mux.HandleFunc("POST /api/v1/monitor/stop", auth.RequireAuth(h.StopMonitor))
	mux.HandleFunc("POST /api/v1/monitor/check", auth.RequireAuth(h.ForceCheck))
	mux.HandleFunc("GET /api/v1/monitor/status", auth.RequireAuth(h.MonitorStatus))
	mux.HandleFunc("GET /api/v1/monitor/stats", auth.RequireAuth(h.MonitorStats))
	mux.HandleFunc("PUT /api/v1/monitor/config", auth.RequireAuth(h.UpdateMonitorConfig))

	// Rule management
	mux.HandleFunc("GET /api/v1/rules/correlation", auth.RequireAuth(h.ListCorrelationRules))
	mux.HandleFunc("POST /api/v1/rules/correlation", auth.RequireAuth(h.CreateCorrelationRule))
	mux.HandleFunc("PUT /api/v1/rules/correlation/{id}", auth.RequireAuth(h.UpdateCorrelationRule))
	mux.HandleFunc("DELETE /api/v1/rules/correlation/{id}", auth.RequireAuth(h.DeleteCorrelationRule))
	mux.HandleFunc("GET /api/v1/rules/response", auth.RequireAuth(h.ListResponseRules))
	mux.HandleFunc("POST /api/v1/rules/response", auth.RequireAuth(h.CreateResponseRule))
	mux.HandleFunc("PUT /api/v1/rules/response/{id}", auth.RequireAuth(h.UpdateResponseRule))
	mux.HandleFunc("DELETE /api/v1/rules/response/{id}", auth.RequireAuth(h.DeleteResponseRule))

	// Incidents
	mux.HandleFunc("GET /api/v1/incidents", auth.RequireAuth(h.ListIncidents))
	mux.HandleFunc("GET /api/v1/incidents/{id}", auth.RequireAuth(h.GetIncident))
	mux.HandleFunc("POST /api/v1/incidents/{id}/close", auth.RequireAuth(h.CloseIncident))

	return mux
}
