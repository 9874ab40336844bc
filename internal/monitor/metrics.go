package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	eventsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_monitor_events_scanned_total",
			Help: "Total number of audit events scanned",
		},
		[]string{"tick"},
	)

	threatsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_monitor_threats_detected_total",
			Help: "Total number of threats detected",
		},
		[]string{"tick", "threat_type"},
	)

	incidentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_monitor_incidents_created_total",
			Help: "Total number of incidents created",
		},
	)

	responsesExecuted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_monitor_responses_executed_total",
			Help: "Total number of automated responses executed",
		},
	)

	responsesThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_monitor_responses_throttled_total",
			Help: "Total number of automated responses suppressed by the hourly cap",
		},
	)

	alertsDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_monitor_alerts_dispatched_total",
			Help: "Total number of alerts handed to the dispatcher",
		},
	)

	tickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_monitor_tick_duration_seconds",
			Help:    "Duration of monitor ticks in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tick"},
	)

	tickErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_monitor_tick_errors_total",
			Help: "Total number of failed monitor ticks",
		},
		[]string{"tick"},
	)

	ingestionCursor = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_monitor_ingestion_cursor",
			Help: "Highest audit event id processed by the ingestion tick",
		},
	)
)
