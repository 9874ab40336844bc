package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validCorrelationRule() CorrelationRule {
	return CorrelationRule{
		ID:         "brute-force-actor",
		Name:       "Brute force per actor",
		TimeWindow: 15 * time.Minute,
		MinEvents:  5,
		MaxEvents:  100,
		Conditions: []RuleCondition{
			{Field: FieldAction, Operator: OpEquals, Value: ActionFailedLogin},
			{Field: FieldActorID, Value: SameValue},
		},
		RiskMultiplier: 1.5,
		Confidence:     80,
		Priority:       10,
		Enabled:        true,
	}
}

func TestCorrelationRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CorrelationRule)
		wantErr string
	}{
		{"valid", func(r *CorrelationRule) {}, ""},
		{"missing id", func(r *CorrelationRule) { r.ID = "" }, "id is required"},
		{"zero window", func(r *CorrelationRule) { r.TimeWindow = 0 }, "time_window"},
		{"negative window", func(r *CorrelationRule) { r.TimeWindow = -time.Minute }, "time_window"},
		{"zero min events", func(r *CorrelationRule) { r.MinEvents = 0 }, "min_events"},
		{"max below min", func(r *CorrelationRule) { r.MaxEvents = 2 }, "max_events"},
		{"empty conditions", func(r *CorrelationRule) { r.Conditions = nil }, "at least one condition"},
		{"unknown field", func(r *CorrelationRule) {
			r.Conditions[0].Field = "severity"
		}, "unknown event field"},
		{"bad regex", func(r *CorrelationRule) {
			r.Conditions[0] = RuleCondition{Field: FieldAction, Operator: OpRegex, Value: "("}
		}, "invalid regex"},
		{"in without values", func(r *CorrelationRule) {
			r.Conditions[0] = RuleCondition{Field: FieldAction, Operator: OpIn}
		}, "non-empty values"},
		{"zero multiplier", func(r *CorrelationRule) { r.RiskMultiplier = 0 }, "risk_multiplier"},
		{"confidence out of range", func(r *CorrelationRule) { r.Confidence = 120 }, "confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validCorrelationRule()
			tt.mutate(&rule)
			err := rule.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestCorrelationFields(t *testing.T) {
	rule := validCorrelationRule()
	fields := rule.CorrelationFields()
	assert.Equal(t, []EventField{FieldActorID}, fields)

	rule.Conditions = append(rule.Conditions, RuleCondition{Field: FieldIPAddress, Value: SameValue})
	assert.Equal(t, []EventField{FieldActorID, FieldIPAddress}, rule.CorrelationFields())
}

func TestResponseRuleValidate(t *testing.T) {
	rule := ResponseRule{
		ID:   "lock-on-brute-force",
		Name: "Lock account on brute force",
		Conditions: []ResponseCondition{
			{Field: ThreatFieldRiskScore, Operator: OpGreaterThan, Value: "80"},
		},
		Actions:     []ResponseAction{{Type: ActionLock}, {Type: ActionAlert}},
		Priority:    1,
		Enabled:     true,
		AutoExecute: true,
	}
	assert.NoError(t, rule.Validate())

	bad := rule
	bad.Actions = []ResponseAction{{Type: "quarantine"}}
	assert.ErrorContains(t, bad.Validate(), "unknown action type")

	bad = rule
	bad.Conditions = nil
	assert.ErrorContains(t, bad.Validate(), "at least one condition")

	bad = rule
	bad.Conditions = []ResponseCondition{{Field: "severity", Operator: OpEquals, Value: "high"}}
	assert.ErrorContains(t, bad.Validate(), "unknown threat field")
}

func TestSeverityForRiskScore(t *testing.T) {
	assert.Equal(t, SeverityCritical, SeverityForRiskScore(95))
	assert.Equal(t, SeverityCritical, SeverityForRiskScore(90))
	assert.Equal(t, SeverityHigh, SeverityForRiskScore(80))
	assert.Equal(t, SeverityMedium, SeverityForRiskScore(50))
	assert.Equal(t, SeverityLow, SeverityForRiskScore(49))
	assert.Equal(t, SeverityLow, SeverityForRiskScore(0))
}

func TestEventFieldValue(t *testing.T) {
	e := &SecurityEvent{ActorID: "42", TenantID: "prop-9", Action: ActionExport, IPAddress: "10.0.0.1"}
	assert.Equal(t, "42", FieldActorID.Value(e))
	assert.Equal(t, "prop-9", FieldTenantID.Value(e))
	assert.Equal(t, ActionExport, FieldAction.Value(e))
	assert.Equal(t, "", FieldResource.Value(e))
}
