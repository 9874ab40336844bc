package correlation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stayops-systems/sentinel/internal/models"
)

// matcher is a compiled per-event condition. SAME conditions never become
// matchers; they only contribute to the correlation key.
type matcher struct {
	field    models.EventField
	operator models.ConditionOperator
	value    string
	values   []string
	re       *regexp.Regexp
}

// compileMatchers compiles the non-SAME conditions of a rule. A rule
// whose regex fails to compile is a configuration error surfaced per
// rule, not a pipeline failure.
func compileMatchers(rule *models.CorrelationRule) ([]matcher, error) {
	matchers := make([]matcher, 0, len(rule.Conditions))
	for i := range rule.Conditions {
		c := &rule.Conditions[i]
		if c.IsSame() {
			continue
		}
		m := matcher{field: c.Field, operator: c.Operator, value: c.Value, values: c.Values}
		if c.Operator == models.OpRegex {
			re, err := regexp.Compile(c.Value)
			if err != nil {
				return nil, fmt.Errorf("condition[%d]: invalid regex %q: %w", i, c.Value, err)
			}
			m.re = re
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

// matches reports whether the event satisfies the compiled condition.
func (m *matcher) matches(e *models.SecurityEvent) bool {
	got := m.field.Value(e)
	switch m.operator {
	case models.OpEquals:
		return got == m.value
	case models.OpNotEquals:
		return got != m.value
	case models.OpContains:
		return strings.Contains(got, m.value)
	case models.OpIn:
		return containsString(m.values, got)
	case models.OpNotIn:
		return !containsString(m.values, got)
	case models.OpRegex:
		return m.re.MatchString(got)
	default:
		return false
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// unknownBucket is the group key component for events missing a
// correlation field. Collapsing them into one bucket can under- or
// over-merge distinct actors; the alternative (dropping them) hides
// events from detection entirely.
const unknownBucket = "unknown"

// groupKey builds the correlation key for an event from the rule's SAME
// fields.
func groupKey(fields []models.EventField, e *models.SecurityEvent) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		v := f.Value(e)
		if v == "" {
			v = unknownBucket
		}
		parts[i] = string(f) + "=" + v
	}
	return strings.Join(parts, "|")
}
