package models

import (
	"fmt"
	"regexp"
	"time"
)

// ConditionOperator is the comparison applied by a rule condition.
type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpNotEquals   ConditionOperator = "not_equals"
	OpContains    ConditionOperator = "contains"
	OpIn          ConditionOperator = "in"
	OpNotIn       ConditionOperator = "not_in"
	OpRegex       ConditionOperator = "regex"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
)

// IsValid reports whether op is a known operator.
func (op ConditionOperator) IsValid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpIn, OpNotIn, OpRegex, OpGreaterThan, OpLessThan:
		return true
	default:
		return false
	}
}

// SameValue is the sentinel condition value meaning "equal across all
// events in the group": the condition's field becomes part of the
// correlation key instead of being compared per event.
const SameValue = "SAME"

// RuleCondition is a single field comparison in a correlation rule.
type RuleCondition struct {
	Field    EventField        `json:"field" yaml:"field"`
	Operator ConditionOperator `json:"operator" yaml:"operator"`
	Value    string            `json:"value" yaml:"value"`
	Values   []string          `json:"values,omitempty" yaml:"values,omitempty"` // for in / not_in
}

// IsSame reports whether the condition contributes to the correlation key.
func (c *RuleCondition) IsSame() bool {
	return c.Value == SameValue
}

// Validate checks the condition against the closed field and operator sets.
func (c *RuleCondition) Validate() error {
	if !c.Field.IsValid() {
		return fmt.Errorf("unknown event field: %q", c.Field)
	}
	if c.IsSame() {
		return nil
	}
	if !c.Operator.IsValid() {
		return fmt.Errorf("unknown operator: %q", c.Operator)
	}
	switch c.Operator {
	case OpGreaterThan, OpLessThan:
		return fmt.Errorf("operator %s is not supported on event fields", c.Operator)
	case OpIn, OpNotIn:
		if len(c.Values) == 0 {
			return fmt.Errorf("operator %s requires a non-empty values list", c.Operator)
		}
	case OpRegex:
		if _, err := regexp.Compile(c.Value); err != nil {
			return fmt.Errorf("invalid regex %q: %w", c.Value, err)
		}
	}
	return nil
}

// CorrelationRule is an operator-managed detection rule evaluated by the
// correlation engine. Rules are defined at startup from rule packs or
// added at runtime; the engine never mutates them.
type CorrelationRule struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Description    string          `json:"description,omitempty" yaml:"description,omitempty"`
	TimeWindow     time.Duration   `json:"time_window" yaml:"time_window"`
	MinEvents      int             `json:"min_events" yaml:"min_events"`
	MaxEvents      int             `json:"max_events" yaml:"max_events"`
	Conditions     []RuleCondition `json:"conditions" yaml:"conditions"`
	RiskMultiplier float64         `json:"risk_multiplier" yaml:"risk_multiplier"`
	Confidence     int             `json:"confidence" yaml:"confidence"`
	Priority       int             `json:"priority" yaml:"priority"` // lower value wins ties
	Enabled        bool            `json:"enabled" yaml:"enabled"`
}

// Validate rejects rules the engine cannot evaluate safely. An empty
// condition list is rejected outright: it would match every event and
// collapse them into a single group.
func (r *CorrelationRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if r.Name == "" {
		return fmt.Errorf("rule %s: name is required", r.ID)
	}
	if r.TimeWindow <= 0 {
		return fmt.Errorf("rule %s: time_window must be positive", r.ID)
	}
	if r.MinEvents <= 0 {
		return fmt.Errorf("rule %s: min_events must be positive", r.ID)
	}
	if r.MaxEvents < r.MinEvents {
		return fmt.Errorf("rule %s: max_events (%d) must be >= min_events (%d)", r.ID, r.MaxEvents, r.MinEvents)
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("rule %s: at least one condition is required", r.ID)
	}
	for i := range r.Conditions {
		if err := r.Conditions[i].Validate(); err != nil {
			return fmt.Errorf("rule %s: condition[%d]: %w", r.ID, i, err)
		}
	}
	if r.RiskMultiplier <= 0 {
		return fmt.Errorf("rule %s: risk_multiplier must be positive", r.ID)
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return fmt.Errorf("rule %s: confidence must be in [0,100]", r.ID)
	}
	return nil
}

// CorrelationFields returns the fields whose values form the correlation key.
func (r *CorrelationRule) CorrelationFields() []EventField {
	var fields []EventField
	for i := range r.Conditions {
		if r.Conditions[i].IsSame() {
			fields = append(fields, r.Conditions[i].Field)
		}
	}
	return fields
}

// ResponseActionType identifies a mitigating action handler.
type ResponseActionType string

const (
	ActionBlock    ResponseActionType = "block"
	ActionLock     ResponseActionType = "lock"
	ActionRestrict ResponseActionType = "restrict"
	ActionAlert    ResponseActionType = "alert"
	ActionNotify   ResponseActionType = "notify"
	ActionLog      ResponseActionType = "log"
)

// IsValid reports whether t names a known action handler.
func (t ResponseActionType) IsValid() bool {
	switch t {
	case ActionBlock, ActionLock, ActionRestrict, ActionAlert, ActionNotify, ActionLog:
		return true
	default:
		return false
	}
}

// ResponseAction is one ordered step of a response rule.
type ResponseAction struct {
	Type       ResponseActionType     `json:"type" yaml:"type"`
	Parameters map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ThreatField identifies an addressable field of a ThreatIntelligence
// record for response rule conditions.
type ThreatField string

const (
	ThreatFieldType           ThreatField = "threat_type"
	ThreatFieldRiskScore      ThreatField = "risk_score"
	ThreatFieldConfidence     ThreatField = "confidence"
	ThreatFieldStatus         ThreatField = "status"
	ThreatFieldResources      ThreatField = "affected_resources"
	ThreatFieldIndicatorCount ThreatField = "indicator_count"
	ThreatFieldResourceCount  ThreatField = "resource_count"
)

// IsValid reports whether f names a known threat field.
func (f ThreatField) IsValid() bool {
	switch f {
	case ThreatFieldType, ThreatFieldRiskScore, ThreatFieldConfidence,
		ThreatFieldStatus, ThreatFieldResources, ThreatFieldIndicatorCount, ThreatFieldResourceCount:
		return true
	default:
		return false
	}
}

// ResponseCondition is a single comparison against a threat record.
type ResponseCondition struct {
	Field    ThreatField       `json:"field" yaml:"field"`
	Operator ConditionOperator `json:"operator" yaml:"operator"`
	Value    string            `json:"value,omitempty" yaml:"value,omitempty"`
	Values   []string          `json:"values,omitempty" yaml:"values,omitempty"`
}

// Validate checks the condition shape.
func (c *ResponseCondition) Validate() error {
	if !c.Field.IsValid() {
		return fmt.Errorf("unknown threat field: %q", c.Field)
	}
	if !c.Operator.IsValid() {
		return fmt.Errorf("unknown operator: %q", c.Operator)
	}
	switch c.Operator {
	case OpIn, OpNotIn:
		if len(c.Values) == 0 {
			return fmt.Errorf("operator %s requires a non-empty values list", c.Operator)
		}
	case OpRegex:
		if _, err := regexp.Compile(c.Value); err != nil {
			return fmt.Errorf("invalid regex %q: %w", c.Value, err)
		}
	}
	return nil
}

// ResponseRule maps matched threats to an ordered list of actions.
type ResponseRule struct {
	ID          string              `json:"id" yaml:"id"`
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Conditions  []ResponseCondition `json:"conditions" yaml:"conditions"`
	Actions     []ResponseAction    `json:"actions" yaml:"actions"`
	Priority    int                 `json:"priority" yaml:"priority"` // lower value evaluated first
	Enabled     bool                `json:"enabled" yaml:"enabled"`
	AutoExecute bool                `json:"auto_execute" yaml:"auto_execute"`
}

// Validate rejects malformed response rules.
func (r *ResponseRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if r.Name == "" {
		return fmt.Errorf("rule %s: name is required", r.ID)
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("rule %s: at least one condition is required", r.ID)
	}
	for i := range r.Conditions {
		if err := r.Conditions[i].Validate(); err != nil {
			return fmt.Errorf("rule %s: condition[%d]: %w", r.ID, i, err)
		}
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("rule %s: at least one action is required", r.ID)
	}
	for i := range r.Actions {
		if !r.Actions[i].Type.IsValid() {
			return fmt.Errorf("rule %s: action[%d]: unknown action type %q", r.ID, i, r.Actions[i].Type)
		}
	}
	return nil
}
