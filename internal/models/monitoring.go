package models

import (
	"fmt"
	"sync"
	"time"
)

// MonitorState is the lifecycle state of the real-time monitor.
type MonitorState string

const (
	MonitorStopped  MonitorState = "stopped"
	MonitorStarting MonitorState = "starting"
	MonitorRunning  MonitorState = "running"
	MonitorStopping MonitorState = "stopping"
	MonitorError    MonitorState = "error"
)

// MonitoringConfig holds the process-wide tunables of the monitor.
type MonitoringConfig struct {
	IngestionInterval   time.Duration `json:"ingestion_interval" yaml:"ingestion_interval" mapstructure:"ingestion_interval"`
	DeepScanInterval    time.Duration `json:"deep_scan_interval" yaml:"deep_scan_interval" mapstructure:"deep_scan_interval"`
	CorrelationInterval time.Duration `json:"correlation_interval" yaml:"correlation_interval" mapstructure:"correlation_interval"`
	CorrelationWindow   time.Duration `json:"correlation_window" yaml:"correlation_window" mapstructure:"correlation_window"`
	DeepScanWindow      time.Duration `json:"deep_scan_window" yaml:"deep_scan_window" mapstructure:"deep_scan_window"`
	MaxEventsPerBatch   int           `json:"max_events_per_batch" yaml:"max_events_per_batch" mapstructure:"max_events_per_batch"`
	AutoResponseEnabled bool          `json:"auto_response_enabled" yaml:"auto_response_enabled" mapstructure:"auto_response_enabled"`
	AutoResponsePerHour int           `json:"auto_response_per_hour" yaml:"auto_response_per_hour" mapstructure:"auto_response_per_hour"`
	AutoResponseMinRisk int           `json:"auto_response_min_risk" yaml:"auto_response_min_risk" mapstructure:"auto_response_min_risk"`
	CorrelationMinRisk  int           `json:"correlation_min_risk" yaml:"correlation_min_risk" mapstructure:"correlation_min_risk"`
	TickTimeout         time.Duration `json:"tick_timeout" yaml:"tick_timeout" mapstructure:"tick_timeout"`
	StopGracePeriod     time.Duration `json:"stop_grace_period" yaml:"stop_grace_period" mapstructure:"stop_grace_period"`
}

// DefaultMonitoringConfig returns the shipped tunables.
func DefaultMonitoringConfig() MonitoringConfig {
	return MonitoringConfig{
		IngestionInterval:   5 * time.Second,
		DeepScanInterval:    10 * time.Second,
		CorrelationInterval: 15 * time.Second,
		CorrelationWindow:   30 * time.Minute,
		DeepScanWindow:      10 * time.Minute,
		MaxEventsPerBatch:   500,
		AutoResponseEnabled: true,
		AutoResponsePerHour: 20,
		AutoResponseMinRisk: 60,
		CorrelationMinRisk:  70,
		TickTimeout:         30 * time.Second,
		StopGracePeriod:     5 * time.Second,
	}
}

// Validate rejects configurations the monitor cannot run with.
func (c *MonitoringConfig) Validate() error {
	if c.IngestionInterval <= 0 || c.DeepScanInterval <= 0 || c.CorrelationInterval <= 0 {
		return fmt.Errorf("tick intervals must be positive")
	}
	if c.CorrelationWindow <= 0 || c.DeepScanWindow <= 0 {
		return fmt.Errorf("scan windows must be positive")
	}
	if c.MaxEventsPerBatch <= 0 {
		return fmt.Errorf("max_events_per_batch must be positive")
	}
	if c.AutoResponsePerHour < 0 {
		return fmt.Errorf("auto_response_per_hour must be non-negative")
	}
	if c.AutoResponseMinRisk < 0 || c.AutoResponseMinRisk > 100 {
		return fmt.Errorf("auto_response_min_risk must be in [0,100]")
	}
	if c.CorrelationMinRisk < 0 || c.CorrelationMinRisk > 100 {
		return fmt.Errorf("correlation_min_risk must be in [0,100]")
	}
	if c.TickTimeout <= 0 {
		return fmt.Errorf("tick_timeout must be positive")
	}
	return nil
}

// MonitoringStats tracks pipeline counters. Counters reset only on
// process restart.
type MonitoringStats struct {
	mu sync.RWMutex

	StartedAt           time.Time `json:"started_at"`
	LastIngestionTick   time.Time `json:"last_ingestion_tick"`
	LastDeepScanTick    time.Time `json:"last_deep_scan_tick"`
	LastCorrelationTick time.Time `json:"last_correlation_tick"`
	EventsScanned       int64     `json:"events_scanned"`
	ThreatsDetected     int64     `json:"threats_detected"`
	CorrelationsFound   int64     `json:"correlations_found"`
	IncidentsCreated    int64     `json:"incidents_created"`
	ResponsesExecuted   int64     `json:"responses_executed"`
	ResponsesThrottled  int64     `json:"responses_throttled"`
	AlertsDispatched    int64     `json:"alerts_dispatched"`
	TickErrors          int64     `json:"tick_errors"`
	LastCursor          int64     `json:"last_cursor"`
}

// Snapshot returns a copy safe for serialization.
func (s *MonitoringStats) Snapshot() MonitoringStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return MonitoringStats{
		StartedAt:           s.StartedAt,
		LastIngestionTick:   s.LastIngestionTick,
		LastDeepScanTick:    s.LastDeepScanTick,
		LastCorrelationTick: s.LastCorrelationTick,
		EventsScanned:       s.EventsScanned,
		ThreatsDetected:     s.ThreatsDetected,
		CorrelationsFound:   s.CorrelationsFound,
		IncidentsCreated:    s.IncidentsCreated,
		ResponsesExecuted:   s.ResponsesExecuted,
		ResponsesThrottled:  s.ResponsesThrottled,
		AlertsDispatched:    s.AlertsDispatched,
		TickErrors:          s.TickErrors,
		LastCursor:          s.LastCursor,
	}
}

// Update applies fn under the stats lock.
func (s *MonitoringStats) Update(fn func(*MonitoringStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}
