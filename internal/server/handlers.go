// Package server exposes the sentinel operations API.
package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/stayops-systems/sentinel/internal/httputil"
	"github.com/stayops-systems/sentinel/internal/logging"
	"github.com/stayops-systems/sentinel/internal/models"
	"github.com/stayops-systems/sentinel/internal/monitor"
	"github.com/stayops-systems/sentinel/internal/repository"
	"github.com/stayops-systems/sentinel/internal/rules"
)

// Handler carries the dependencies of the operations API.
type Handler struct {
	monitor   *monitor.Monitor
	corrRules *rules.CorrelationStore
	respRules *rules.ResponseStore
	incidents repository.IncidentStore
	logger    *slog.Logger
}

// NewHandler builds the API handler.
func NewHandler(m *monitor.Monitor, corrRules *rules.CorrelationStore, respRules *rules.ResponseStore, incidents repository.IncidentStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		monitor:   m,
		corrRules: corrRules,
		respRules: respRules,
		incidents: incidents,
		logger:    logger,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Monitor lifecycle

func (h *Handler) StartMonitor(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.Start(r.Context()); err != nil {
		httputil.WriteError(w, http.StatusConflict, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"state": string(h.monitor.State())})
}

func (h *Handler) StopMonitor(w http.ResponseWriter, _ *http.Request) {
	if err := h.monitor.Stop(); err != nil {
		httputil.WriteError(w, http.StatusConflict, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"state": string(h.monitor.State())})
}

func (h *Handler) MonitorStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"state":  h.monitor.State(),
		"config": h.monitor.Config(),
	})
}

func (h *Handler) MonitorStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.monitor.Stats()
	httputil.WriteJSON(w, http.StatusOK, &stats)
}

func (h *Handler) ForceCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.ForceCheck(r.Context()); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats := h.monitor.Stats()
	httputil.WriteJSON(w, http.StatusOK, &stats)
}

func (h *Handler) UpdateMonitorConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.monitor.Config()
	if err := httputil.DecodeJSON(r, &cfg); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid config payload: "+err.Error())
		return
	}
	if err := h.monitor.UpdateConfig(cfg); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

// Correlation rules

func (h *Handler) ListCorrelationRules(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.corrRules.List())
}

func (h *Handler) CreateCorrelationRule(w http.ResponseWriter, r *http.Request) {
	var rule models.CorrelationRule
	if err := httputil.DecodeJSON(r, &rule); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid rule payload: "+err.Error())
		return
	}
	if err := h.corrRules.Add(rule); err != nil {
		status := http.StatusBadRequest
		if err == rules.ErrExists {
			status = http.StatusConflict
		}
		httputil.WriteError(w, status, err.Error())
		return
	}
	h.logger.Info("correlation rule created", logging.Component("api"), logging.RuleID(rule.ID))
	httputil.WriteJSON(w, http.StatusCreated, rule)
}

func (h *Handler) UpdateCorrelationRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var rule models.CorrelationRule
	if err := httputil.DecodeJSON(r, &rule); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid rule payload: "+err.Error())
		return
	}
	if rule.ID != "" && rule.ID != id {
		httputil.WriteError(w, http.StatusBadRequest, "rule id in body does not match path")
		return
	}
	rule.ID = id
	if err := h.corrRules.Update(rule); err != nil {
		status := http.StatusBadRequest
		if err == rules.ErrNotFound {
			status = http.StatusNotFound
		}
		httputil.WriteError(w, status, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rule)
}

func (h *Handler) DeleteCorrelationRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.corrRules.Delete(id); err != nil {
		httputil.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Response rules

func (h *Handler) ListResponseRules(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.respRules.List())
}

func (h *Handler) CreateResponseRule(w http.ResponseWriter, r *http.Request) {
	var rule models.ResponseRule
	if err := httputil.DecodeJSON(r, &rule); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid rule payload: "+err.Error())
		return
	}
	if err := h.respRules.Add(rule); err != nil {
		status := http.StatusBadRequest
		if err == rules.ErrExists {
			status = http.StatusConflict
		}
		httputil.WriteError(w, status, err.Error())
		return
	}
	h.logger.Info("response rule created", logging.Component("api"), logging.RuleID(rule.ID))
	httputil.WriteJSON(w, http.StatusCreated, rule)
}

func (h *Handler) UpdateResponseRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var rule models.ResponseRule
	if err := httputil.DecodeJSON(r, &rule); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid rule payload: "+err.Error())
		return
	}
	if rule.ID != "" && rule.ID != id {
		httputil.WriteError(w, http.StatusBadRequest, "rule id in body does not match path")
		return
	}
	rule.ID = id
	if err := h.respRules.Update(rule); err != nil {
		status := http.StatusBadRequest
		if err == rules.ErrNotFound {
			status = http.StatusNotFound
		}
		httputil.WriteError(w, status, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rule)
}

func (h *Handler) DeleteResponseRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.respRules.Delete(id); err != nil {
		httputil.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Incidents

func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	filter := repository.IncidentFilter{
		Status:   models.IncidentStatus(r.URL.Query().Get("status")),
		Severity: models.IncidentSeverity(r.URL.Query().Get("severity")),
	}
	incidents, err := h.incidents.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, incidents)
}

func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := h.incidents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if err == repository.ErrIncidentNotFound {
			httputil.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, incident)
}

func (h *Handler) CloseIncident(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		Resolution string `json:"resolution"`
	}
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}
	resolution := strings.TrimSpace(body.Resolution)
	if resolution == "" {
		httputil.WriteError(w, http.StatusBadRequest, "resolution is required")
		return
	}

	closed := models.IncidentClosed
	patch := &models.IncidentPatch{Status: &closed, Resolution: &resolution}
	if err := h.incidents.Update(r.Context(), id, patch); err != nil {
		if err == repository.ErrIncidentNotFound {
			httputil.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	incident, err := h.incidents.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.Info("incident closed", logging.Component("api"), logging.IncidentID(id))
	httputil.WriteJSON(w, http.StatusOK, incident)
}
