package models

import "time"

// ThreatIndicatorType classifies an indicator of compromise.
type ThreatIndicatorType string

const (
	IndicatorIP      ThreatIndicatorType = "ip"
	IndicatorActor   ThreatIndicatorType = "actor"
	IndicatorPattern ThreatIndicatorType = "pattern"
	IndicatorDomain  ThreatIndicatorType = "domain"
	IndicatorHash    ThreatIndicatorType = "hash"
)

// ThreatIndicator is a concrete artifact associated with suspected
// malicious activity, with a confidence in [0,100].
type ThreatIndicator struct {
	Type       ThreatIndicatorType `json:"type"`
	Value      string              `json:"value"`
	Confidence int                 `json:"confidence"`
	Source     string              `json:"source,omitempty"`
	FirstSeen  time.Time           `json:"first_seen,omitempty"`
	LastSeen   time.Time           `json:"last_seen,omitempty"`
}

// CorrelationPattern summarizes the shape of a correlated event group.
type CorrelationPattern struct {
	EventCount     int           `json:"event_count"`
	TimeSpan       time.Duration `json:"time_span"`
	Frequency      float64       `json:"frequency"` // events per minute
	UniqueActors   int           `json:"unique_actors"`
	UniqueIPs      int           `json:"unique_ips"`
	UniqueTenants  int           `json:"unique_tenants"`
	ActionTypes    []string      `json:"action_types"`
}

// EventCorrelation is the ephemeral result of one rule matching one
// group of events. Invariant: MinEvents <= len(Events) <= MaxEvents and
// Pattern.TimeSpan <= the rule's TimeWindow.
type EventCorrelation struct {
	RuleID            string             `json:"rule_id"`
	RuleName          string             `json:"rule_name"`
	CorrelationKey    string             `json:"correlation_key"`
	Events            []SecurityEvent    `json:"events"`
	Pattern           CorrelationPattern `json:"pattern"`
	RiskScore         int                `json:"risk_score"`
	Confidence        int                `json:"confidence"`
	Priority          int                `json:"priority"`
	Indicators        []ThreatIndicator  `json:"indicators"`
	AffectedResources []string           `json:"affected_resources"`
	DetectedAt        time.Time          `json:"detected_at"`
}

// ThreatStatus is the lifecycle state of a threat record.
type ThreatStatus string

const (
	ThreatActive        ThreatStatus = "active"
	ThreatInvestigating ThreatStatus = "investigating"
	ThreatContained     ThreatStatus = "contained"
	ThreatResolved      ThreatStatus = "resolved"
	ThreatFalsePositive ThreatStatus = "false_positive"
)

// ThreatType labels the category of a detected threat.
type ThreatType string

const (
	ThreatBruteForce        ThreatType = "brute_force"
	ThreatPrivilegeProbing  ThreatType = "privilege_probing"
	ThreatDataExfiltration  ThreatType = "data_exfiltration"
	ThreatFinancialTamper   ThreatType = "financial_tampering"
	ThreatAccountTakeover   ThreatType = "account_takeover"
	ThreatCoordinatedAttack ThreatType = "coordinated_attack"
	ThreatUnusualActivity   ThreatType = "unusual_activity"
)

// TimelineEntry is one step in a threat or incident timeline.
type TimelineEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Source      string    `json:"source,omitempty"`
}

// ThreatIntelligence is the unified threat record produced either by the
// per-event classifier or by converting an EventCorrelation.
type ThreatIntelligence struct {
	ThreatID          string            `json:"threat_id"`
	ThreatType        ThreatType        `json:"threat_type"`
	RiskScore         int               `json:"risk_score"`  // 0-100
	Confidence        int               `json:"confidence"`  // 0-100
	Indicators        []ThreatIndicator `json:"indicators"`
	AffectedResources []string          `json:"affected_resources"`
	Timeline          []TimelineEntry   `json:"timeline"`
	Status            ThreatStatus      `json:"status"`
	SourceEventID     int64             `json:"source_event_id,omitempty"`
	CorrelationRuleID string            `json:"correlation_rule_id,omitempty"`
	DetectedAt        time.Time         `json:"detected_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
