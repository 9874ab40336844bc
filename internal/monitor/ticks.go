package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stayops-systems/sentinel/internal/logging"
	"github.com/stayops-systems/sentinel/internal/models"
)

// ingestionTick tails the audit event stream from the cursor, classifies
// each new event, and handles any resulting threats. The cursor only
// advances after the batch is processed, so a failed read is retried on
// the next tick.
func (m *Monitor) ingestionTick(ctx context.Context) error {
	m.mu.RLock()
	cursor := m.cursor
	cfg := m.cfg
	m.mu.RUnlock()

	events, err := m.events.ReadSince(ctx, cursor, cfg.MaxEventsPerBatch)
	if err != nil {
		return fmt.Errorf("read events since %d: %w", cursor, err)
	}
	if len(events) == 0 {
		m.stats.Update(func(s *models.MonitoringStats) { s.LastIngestionTick = m.now() })
		return nil
	}

	for i := range events {
		event := &events[i]
		if event.ID > cursor {
			cursor = event.ID
		}
		threat, ok := m.classifier.Classify(ctx, event)
		if !ok {
			continue
		}
		m.handleThreat(ctx, fmt.Sprintf("event:%d", event.ID), threat, []models.SecurityEvent{*event})
	}

	m.mu.Lock()
	if cursor > m.cursor {
		m.cursor = cursor
	}
	m.mu.Unlock()

	eventsScanned.WithLabelValues(tickIngestion).Add(float64(len(events)))
	ingestionCursor.Set(float64(cursor))
	m.stats.Update(func(s *models.MonitoringStats) {
		s.LastIngestionTick = m.now()
		s.EventsScanned += int64(len(events))
		s.LastCursor = cursor
	})
	return nil
}

// deepScanTick re-examines the recent window. Events the ingestion tick
// already turned into threats are absorbed by the dedup cache; the scan
// exists to catch events written with backdated timestamps or ids below
// the cursor.
func (m *Monitor) deepScanTick(ctx context.Context) error {
	cfg := m.Config()

	events, err := m.events.ReadRecent(ctx, cfg.DeepScanWindow, cfg.MaxEventsPerBatch)
	if err != nil {
		return fmt.Errorf("read recent events: %w", err)
	}

	for i := range events {
		event := &events[i]
		threat, ok := m.classifier.Classify(ctx, event)
		if !ok {
			continue
		}
		m.handleThreat(ctx, fmt.Sprintf("event:%d", event.ID), threat, []models.SecurityEvent{*event})
	}

	eventsScanned.WithLabelValues(tickDeepScan).Add(float64(len(events)))
	m.stats.Update(func(s *models.MonitoringStats) {
		s.LastDeepScanTick = m.now()
		s.EventsScanned += int64(len(events))
	})
	return nil
}

// correlationTick runs the correlation engine over the recent window and
// handles every correlation at or above the reporting threshold.
func (m *Monitor) correlationTick(ctx context.Context) error {
	cfg := m.Config()

	events, err := m.events.ReadRecent(ctx, cfg.CorrelationWindow, cfg.MaxEventsPerBatch)
	if err != nil {
		return fmt.Errorf("read correlation window: %w", err)
	}
	if len(events) == 0 {
		m.stats.Update(func(s *models.MonitoringStats) { s.LastCorrelationTick = m.now() })
		return nil
	}

	correlations := m.correlator.Correlate(events, m.rules.List())
	handled := 0
	for i := range correlations {
		c := &correlations[i]
		if c.RiskScore < cfg.CorrelationMinRisk {
			continue
		}
		threat := m.classifier.FromCorrelation(c)
		m.handleThreat(ctx, fmt.Sprintf("corr:%s:%s", c.RuleID, c.CorrelationKey), threat, c.Events)
		handled++
	}

	m.stats.Update(func(s *models.MonitoringStats) {
		s.LastCorrelationTick = m.now()
		s.CorrelationsFound += int64(len(correlations))
	})
	m.logger.Debug("correlation pass complete",
		logging.Component("monitor"),
		slog.Int("events", len(events)),
		slog.Int("correlations", len(correlations)),
		slog.Int("handled", handled))
	return nil
}

// handleThreat is the shared sink for every detected threat: dedup,
// incident creation, automated response, and alerting. key identifies
// the detection regardless of the threat's generated id, so the same
// finding across ticks opens a single incident.
func (m *Monitor) handleThreat(ctx context.Context, key string, threat *models.ThreatIntelligence, evidence []models.SecurityEvent) {
	// ContainsOrAdd reserves the key in one step so concurrent ticks
	// seeing the same detection cannot both open an incident.
	if seen, _ := m.dedup.ContainsOrAdd(key, struct{}{}); seen {
		return
	}

	cfg := m.Config()
	threatsDetected.WithLabelValues(m.tickLabel(key), string(threat.ThreatType)).Inc()
	m.stats.Update(func(s *models.MonitoringStats) { s.ThreatsDetected++ })

	incident := m.openIncident(ctx, threat, evidence)

	if cfg.AutoResponseEnabled && threat.RiskScore >= cfg.AutoResponseMinRisk {
		m.runResponse(ctx, threat, incident, cfg)
	}

	m.dispatchAlert(ctx, threat, incident)
}

func (m *Monitor) tickLabel(key string) string {
	if len(key) >= 5 && key[:5] == "corr:" {
		return tickCorrelation
	}
	return tickIngestion
}

func (m *Monitor) openIncident(ctx context.Context, threat *models.ThreatIntelligence, evidence []models.SecurityEvent) *models.SecurityIncident {
	now := m.now().UTC()
	incident := &models.SecurityIncident{
		ThreatID:   threat.ThreatID,
		ThreatType: threat.ThreatType,
		Severity:   models.SeverityForRiskScore(threat.RiskScore),
		Status:     models.IncidentOpen,
		Title:      fmt.Sprintf("%s (risk %d)", threat.ThreatType, threat.RiskScore),
		Timeline:   threat.Timeline,
		Evidence:   evidence,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.incidents.Create(ctx, incident); err != nil {
		m.logger.Error("failed to create incident",
			logging.Component("monitor"),
			logging.ThreatID(threat.ThreatID),
			logging.Error(err))
		return nil
	}

	incidentsCreated.Inc()
	m.stats.Update(func(s *models.MonitoringStats) { s.IncidentsCreated++ })
	m.logger.Info("incident opened",
		logging.Component("monitor"),
		logging.IncidentID(incident.ID),
		logging.ThreatID(threat.ThreatID),
		slog.String("severity", string(incident.Severity)),
		slog.Int("risk_score", threat.RiskScore))
	return incident
}

func (m *Monitor) runResponse(ctx context.Context, threat *models.ThreatIntelligence, incident *models.SecurityIncident, cfg models.MonitoringConfig) {
	allowed, err := m.throttle.Allow(ctx, cfg.AutoResponsePerHour)
	if err != nil {
		// Throttle state unavailable: fail closed, no automated action.
		m.logger.Error("response throttle unavailable",
			logging.Component("monitor"),
			logging.ThreatID(threat.ThreatID),
			logging.Error(err))
		return
	}
	if !allowed {
		responsesThrottled.Inc()
		m.stats.Update(func(s *models.MonitoringStats) { s.ResponsesThrottled++ })
		m.logger.Warn("automated response suppressed by hourly cap",
			logging.Component("monitor"),
			logging.ThreatID(threat.ThreatID),
			slog.Int("limit", cfg.AutoResponsePerHour))
		return
	}

	result := m.responder.Execute(ctx, threat, incident)
	responsesExecuted.Inc()
	m.stats.Update(func(s *models.MonitoringStats) { s.ResponsesExecuted++ })

	if incident != nil && len(result.ActionsExecuted) > 0 {
		patch := &models.IncidentPatch{
			ResponseActions: result.ActionsExecuted,
			TimelineAppend: []models.TimelineEntry{{
				Timestamp:   m.now().UTC(),
				Description: fmt.Sprintf("automated response: %d rule(s) matched, %d action(s) executed", len(result.RulesMatched), len(result.ActionsExecuted)),
				Source:      "response-engine",
			}},
		}
		if err := m.incidents.Update(ctx, incident.ID, patch); err != nil {
			m.logger.Error("failed to record response on incident",
				logging.Component("monitor"),
				logging.IncidentID(incident.ID),
				logging.Error(err))
		}
	}
}

func (m *Monitor) dispatchAlert(ctx context.Context, threat *models.ThreatIntelligence, incident *models.SecurityIncident) {
	id, _ := uuid.NewV7()
	alert := &models.Alert{
		ID:        id.String(),
		ThreatID:  threat.ThreatID,
		Severity:  models.SeverityForRiskScore(threat.RiskScore),
		Title:     fmt.Sprintf("Threat detected: %s", threat.ThreatType),
		Message:   fmt.Sprintf("%s detected with risk score %d (confidence %d)", threat.ThreatType, threat.RiskScore, threat.Confidence),
		RiskScore: threat.RiskScore,
		CreatedAt: m.now().UTC(),
	}
	if incident != nil {
		alert.IncidentID = incident.ID
	}

	if err := m.alerts.Dispatch(ctx, alert); err != nil {
		m.logger.Warn("alert dispatch failed",
			logging.Component("monitor"),
			logging.ThreatID(threat.ThreatID),
			logging.Error(err))
		return
	}
	alertsDispatched.Inc()
	m.stats.Update(func(s *models.MonitoringStats) { s.AlertsDispatched++ })
}
