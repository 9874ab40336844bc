package response

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/stayops-systems/sentinel/internal/logging"
	"github.com/stayops-systems/sentinel/internal/models"
)

// matches reports whether every condition of the rule holds for the
// threat. An unevaluable condition (bad numeric value, bad regex) fails
// closed: the rule does not match.
func (e *Engine) matches(rule *models.ResponseRule, threat *models.ThreatIntelligence) bool {
	for i := range rule.Conditions {
		ok, err := evalCondition(&rule.Conditions[i], threat)
		if err != nil {
			e.logger.Warn("response condition unevaluable",
				logging.Component("response"),
				logging.RuleID(rule.ID),
				logging.Error(err))
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

func evalCondition(c *models.ResponseCondition, threat *models.ThreatIntelligence) (bool, error) {
	switch c.Field {
	case models.ThreatFieldRiskScore:
		return evalNumeric(c, threat.RiskScore)
	case models.ThreatFieldConfidence:
		return evalNumeric(c, threat.Confidence)
	case models.ThreatFieldIndicatorCount:
		return evalNumeric(c, len(threat.Indicators))
	case models.ThreatFieldResourceCount:
		return evalNumeric(c, len(threat.AffectedResources))
	case models.ThreatFieldType:
		return evalString(c, string(threat.ThreatType))
	case models.ThreatFieldStatus:
		return evalString(c, string(threat.Status))
	case models.ThreatFieldResources:
		return evalList(c, threat.AffectedResources)
	default:
		return false, fmt.Errorf("unknown threat field: %q", c.Field)
	}
}

func evalNumeric(c *models.ResponseCondition, actual int) (bool, error) {
	switch c.Operator {
	case models.OpGreaterThan, models.OpLessThan, models.OpEquals, models.OpNotEquals:
		want, err := strconv.Atoi(c.Value)
		if err != nil {
			return false, fmt.Errorf("field %s: non-numeric value %q", c.Field, c.Value)
		}
		switch c.Operator {
		case models.OpGreaterThan:
			return actual > want, nil
		case models.OpLessThan:
			return actual < want, nil
		case models.OpEquals:
			return actual == want, nil
		default:
			return actual != want, nil
		}
	case models.OpIn, models.OpNotIn:
		found := slices.Contains(c.Values, strconv.Itoa(actual))
		if c.Operator == models.OpNotIn {
			return !found, nil
		}
		return found, nil
	default:
		return false, fmt.Errorf("field %s: operator %s not supported on numeric fields", c.Field, c.Operator)
	}
}

func evalString(c *models.ResponseCondition, actual string) (bool, error) {
	switch c.Operator {
	case models.OpEquals:
		return actual == c.Value, nil
	case models.OpNotEquals:
		return actual != c.Value, nil
	case models.OpContains:
		return strings.Contains(actual, c.Value), nil
	case models.OpIn:
		return slices.Contains(c.Values, actual), nil
	case models.OpNotIn:
		return !slices.Contains(c.Values, actual), nil
	case models.OpRegex:
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return false, fmt.Errorf("field %s: invalid regex %q: %w", c.Field, c.Value, err)
		}
		return re.MatchString(actual), nil
	default:
		return false, fmt.Errorf("field %s: operator %s not supported on string fields", c.Field, c.Operator)
	}
}

// evalList evaluates against a list-valued field; the condition holds if
// any element satisfies the string comparison.
func evalList(c *models.ResponseCondition, actual []string) (bool, error) {
	switch c.Operator {
	case models.OpNotEquals, models.OpNotIn:
		for _, v := range actual {
			ok, err := evalString(c, v)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	default:
		for _, v := range actual {
			ok, err := evalString(c, v)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}
