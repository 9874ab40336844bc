// Package alerting delivers threat alerts to operator-facing channels.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stayops-systems/sentinel/internal/logging"
	"github.com/stayops-systems/sentinel/internal/models"
)

// Channel defines the interface for alert delivery.
type Channel interface {
	Send(ctx context.Context, alert *models.Alert) error
	Type() models.AlertChannel
}

// WebhookChannel sends alerts via HTTP POST to an operator-configured
// endpoint.
type WebhookChannel struct {
	URL     string
	Timeout time.Duration
	client  *http.Client
}

// NewWebhookChannel creates a webhook alert channel.
func NewWebhookChannel(url string, timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{
		URL:     url,
		Timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (w *WebhookChannel) Type() models.AlertChannel {
	return models.ChannelWebhook
}

func (w *WebhookChannel) Send(ctx context.Context, alert *models.Alert) error {
	payload := map[string]interface{}{
		"alert_id":    alert.ID,
		"incident_id": alert.IncidentID,
		"threat_id":   alert.ThreatID,
		"severity":    alert.Severity,
		"title":       alert.Title,
		"message":     alert.Message,
		"risk_score":  alert.RiskScore,
		"timestamp":   alert.CreatedAt.UTC().Format(time.RFC3339),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "StayOps-Sentinel/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// SlackChannel sends alerts to Slack via incoming webhook.
type SlackChannel struct {
	WebhookURL string
	Timeout    time.Duration
	client     *http.Client
}

// NewSlackChannel creates a Slack alert channel.
func NewSlackChannel(webhookURL string, timeout time.Duration) *SlackChannel {
	return &SlackChannel{
		WebhookURL: webhookURL,
		Timeout:    timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *SlackChannel) Type() models.AlertChannel {
	return models.ChannelSlack
}

func (s *SlackChannel) Send(ctx context.Context, alert *models.Alert) error {
	payload := map[string]interface{}{
		"text": fmt.Sprintf("🚨 %s", alert.Title),
		"attachments": []map[string]interface{}{
			{
				"color": s.severityColor(alert.Severity),
				"text":  alert.Message,
				"fields": []map[string]interface{}{
					{
						"title": "Severity",
						"value": string(alert.Severity),
						"short": true,
					},
					{
						"title": "Risk Score",
						"value": fmt.Sprintf("%d", alert.RiskScore),
						"short": true,
					},
					{
						"title": "Incident",
						"value": alert.IncidentID,
						"short": false,
					},
				},
				"footer": "StayOps Sentinel",
				"ts":     alert.CreatedAt.Unix(),
			},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *SlackChannel) severityColor(severity models.IncidentSeverity) string {
	switch severity {
	case models.SeverityCritical:
		return "#8B0000"
	case models.SeverityHigh:
		return "#FF0000"
	case models.SeverityMedium:
		return "#FFA500"
	case models.SeverityLow:
		return "#FFFF00"
	default:
		return "#808080"
	}
}

// Publisher is the subset of the messaging client the dashboard channel
// needs.
type Publisher interface {
	PublishJSON(ctx context.Context, subject string, data interface{}) error
}

// DashboardChannel pushes alerts onto the message bus for the live
// dashboard feed.
type DashboardChannel struct {
	publisher Publisher
	subject   string
}

// NewDashboardChannel creates a dashboard alert channel publishing to
// the given subject.
func NewDashboardChannel(publisher Publisher, subject string) *DashboardChannel {
	return &DashboardChannel{publisher: publisher, subject: subject}
}

func (d *DashboardChannel) Type() models.AlertChannel {
	return models.ChannelDashboard
}

func (d *DashboardChannel) Send(ctx context.Context, alert *models.Alert) error {
	if err := d.publisher.PublishJSON(ctx, d.subject, alert); err != nil {
		return fmt.Errorf("publish dashboard alert: %w", err)
	}
	return nil
}

// LogChannel writes alerts to the structured log. Used as the fallback
// channel when nothing else is configured.
type LogChannel struct {
	logger *slog.Logger
}

// NewLogChannel creates a log-based alert channel.
func NewLogChannel(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogChannel{logger: logger}
}

func (l *LogChannel) Type() models.AlertChannel {
	return models.AlertChannel("log")
}

func (l *LogChannel) Send(_ context.Context, alert *models.Alert) error {
	l.logger.Info("alert raised",
		logging.Component("alerting"),
		slog.String("alert_id", alert.ID),
		logging.IncidentID(alert.IncidentID),
		logging.ThreatID(alert.ThreatID),
		slog.String("severity", string(alert.Severity)),
		slog.Int("risk_score", alert.RiskScore),
		slog.String("title", alert.Title))
	return nil
}
