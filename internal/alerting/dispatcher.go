package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stayops-systems/sentinel/internal/logging"
	"github.com/stayops-systems/sentinel/internal/models"
)

// Dispatcher fans alerts out to channels by severity. Delivery is
// best-effort: a failing channel is logged and skipped, never retried,
// and never blocks the other channels.
type Dispatcher struct {
	mu       sync.RWMutex
	channels []Channel
	routes   map[models.IncidentSeverity][]models.AlertChannel
	logger   *slog.Logger
}

// DefaultRoutes maps severities to the channels that carry them.
// Critical pages everywhere; low-severity alerts only reach the
// dashboard feed.
func DefaultRoutes() map[models.IncidentSeverity][]models.AlertChannel {
	return map[models.IncidentSeverity][]models.AlertChannel{
		models.SeverityCritical: {models.ChannelDashboard, models.ChannelWebhook, models.ChannelSlack},
		models.SeverityHigh:     {models.ChannelDashboard, models.ChannelWebhook, models.ChannelSlack},
		models.SeverityMedium:   {models.ChannelDashboard, models.ChannelWebhook},
		models.SeverityLow:      {models.ChannelDashboard},
	}
}

// NewDispatcher builds a dispatcher over the given channels. A nil
// routes map selects DefaultRoutes.
func NewDispatcher(channels []Channel, routes map[models.IncidentSeverity][]models.AlertChannel, logger *slog.Logger) *Dispatcher {
	if routes == nil {
		routes = DefaultRoutes()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		channels: channels,
		routes:   routes,
		logger:   logger,
	}
}

// AddChannel registers an additional delivery channel.
func (d *Dispatcher) AddChannel(ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels = append(d.channels, ch)
}

// Dispatch delivers the alert to every channel routed for its severity.
// It returns an error only when no routed channel accepted the alert.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert) error {
	d.mu.RLock()
	channels := d.channels
	routed := d.routes[alert.Severity]
	d.mu.RUnlock()

	if len(routed) == 0 {
		// Unrouted severities still reach the dashboard feed.
		routed = []models.AlertChannel{models.ChannelDashboard}
	}

	wanted := make(map[models.AlertChannel]bool, len(routed))
	for _, c := range routed {
		wanted[c] = true
	}

	attempted := 0
	delivered := 0
	var lastErr error
	for _, ch := range channels {
		if !wanted[ch.Type()] {
			continue
		}
		attempted++
		if err := ch.Send(ctx, alert); err != nil {
			lastErr = err
			d.logger.Warn("alert delivery failed",
				logging.Component("alerting"),
				logging.Channel(string(ch.Type())),
				slog.String("alert_id", alert.ID),
				logging.Error(err))
			continue
		}
		delivered++
	}

	if attempted == 0 {
		d.logger.Warn("no channel configured for severity",
			logging.Component("alerting"),
			slog.String("severity", string(alert.Severity)),
			slog.String("alert_id", alert.ID))
		return nil
	}
	if delivered == 0 {
		return fmt.Errorf("all alert channels failed: %w", lastErr)
	}
	return nil
}
