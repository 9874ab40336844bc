package models

import "time"

// IncidentSeverity buckets risk scores for triage.
type IncidentSeverity string

const (
	SeverityCritical IncidentSeverity = "critical"
	SeverityHigh     IncidentSeverity = "high"
	SeverityMedium   IncidentSeverity = "medium"
	SeverityLow      IncidentSeverity = "low"
)

// SeverityForRiskScore buckets a 0-100 risk score into an incident severity.
func SeverityForRiskScore(score int) IncidentSeverity {
	switch {
	case score >= 90:
		return SeverityCritical
	case score >= 75:
		return SeverityHigh
	case score >= 50:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// IncidentStatus is the lifecycle state of an incident. Incidents are
// never deleted, only transitioned to closed.
type IncidentStatus string

const (
	IncidentOpen          IncidentStatus = "open"
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentContained     IncidentStatus = "contained"
	IncidentClosed        IncidentStatus = "closed"
)

// SecurityIncident is the durable record created for every detected
// threat that crosses the reporting threshold.
type SecurityIncident struct {
	ID              string                   `json:"id"`
	ThreatID        string                   `json:"threat_id"`
	ThreatType      ThreatType               `json:"threat_type"`
	Severity        IncidentSeverity         `json:"severity"`
	Status          IncidentStatus           `json:"status"`
	Title           string                   `json:"title"`
	Timeline        []TimelineEntry          `json:"timeline"`
	Evidence        []SecurityEvent          `json:"evidence,omitempty"`
	ResponseActions []ActionResult           `json:"response_actions,omitempty"`
	Resolution      string                   `json:"resolution,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	ClosedAt        *time.Time               `json:"closed_at,omitempty"`
}

// IncidentPatch carries partial incident updates.
type IncidentPatch struct {
	Status          *IncidentStatus `json:"status,omitempty"`
	Resolution      *string         `json:"resolution,omitempty"`
	ResponseActions []ActionResult  `json:"response_actions,omitempty"`
	TimelineAppend  []TimelineEntry `json:"timeline_append,omitempty"`
}

// ActionResult records one attempted response action with its outcome.
type ActionResult struct {
	Type       ResponseActionType     `json:"type"`
	RuleID     string                 `json:"rule_id"`
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StartedAt  time.Time              `json:"started_at"`
	DurationMS int64                  `json:"duration_ms"`
}

// AutomatedResponseResult aggregates one response engine invocation.
// Success means no attempted action failed; failures never abort the
// remaining actions or rules.
type AutomatedResponseResult struct {
	ThreatID        string         `json:"threat_id"`
	IncidentID      string         `json:"incident_id"`
	RulesMatched    []string       `json:"rules_matched"`
	ActionsExecuted []ActionResult `json:"actions_executed"`
	Success         bool           `json:"success"`
	Errors          []string       `json:"errors,omitempty"`
	ExecutionTimeMS int64          `json:"execution_time_ms"`
	ExecutedAt      time.Time      `json:"executed_at"`
}

// AlertChannel names a delivery channel. Channels are opaque to the
// core; delivery mechanics belong to the dispatcher.
type AlertChannel string

const (
	ChannelEmail     AlertChannel = "email"
	ChannelSMS       AlertChannel = "sms"
	ChannelPush      AlertChannel = "push"
	ChannelDashboard AlertChannel = "dashboard"
	ChannelWebhook   AlertChannel = "webhook"
	ChannelSlack     AlertChannel = "slack"
)

// Alert is a notification about a detected threat or incident.
type Alert struct {
	ID         string           `json:"id"`
	IncidentID string           `json:"incident_id"`
	ThreatID   string           `json:"threat_id"`
	Severity   IncidentSeverity `json:"severity"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	RiskScore  int              `json:"risk_score"`
	CreatedAt  time.Time        `json:"created_at"`
}
