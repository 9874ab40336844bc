// Package correlation implements the rule-driven correlation engine.
// Correlate is pure and deterministic given its inputs, which allows
// exact replay of any detection in tests.
package correlation

import (
	"sort"
	"time"

	"github.com/stayops-systems/sentinel/internal/logging"
	"github.com/stayops-systems/sentinel/internal/models"
)

// DefaultMaxResults bounds the correlations returned per run so
// downstream incident handling stays bounded.
const DefaultMaxResults = 20

// Engine applies correlation rules to batches of recent events.
type Engine struct {
	maxResults int
	logger     *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxResults overrides the top-N result bound.
func WithMaxResults(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxResults = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a correlation engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		maxResults: DefaultMaxResults,
		logger:     logging.Default().With(logging.Component("correlation")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Correlate evaluates every enabled rule against the event batch and
// returns qualifying correlations sorted by risk score descending,
// truncated to the configured top-N. A failing rule is logged and
// skipped; the remaining rules still run.
func (e *Engine) Correlate(events []models.SecurityEvent, rules []models.CorrelationRule) []models.EventCorrelation {
	var results []models.EventCorrelation
	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled {
			continue
		}
		correlations, err := e.evaluateRule(events, rule)
		if err != nil {
			e.logger.Warn("rule evaluation failed", logging.RuleID(rule.ID), logging.Error(err))
			continue
		}
		results = append(results, correlations...)
	}

	// Risk descending; numerically lower priority wins ties. SliceStable
	// keeps rule order for full ties, which preserves determinism.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RiskScore != results[j].RiskScore {
			return results[i].RiskScore > results[j].RiskScore
		}
		return results[i].Priority < results[j].Priority
	})

	if len(results) > e.maxResults {
		results = results[:e.maxResults]
	}
	return results
}

// evaluateRule runs one rule over the batch.
func (e *Engine) evaluateRule(events []models.SecurityEvent, rule *models.CorrelationRule) ([]models.EventCorrelation, error) {
	matchers, err := compileMatchers(rule)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.SecurityEvent, 0, len(events))
	for i := range events {
		if matchesAll(matchers, &events[i]) {
			filtered = append(filtered, events[i])
		}
	}
	if len(filtered) < rule.MinEvents {
		return nil, nil
	}

	keyFields := rule.CorrelationFields()
	groups := make(map[string][]models.SecurityEvent)
	var keyOrder []string
	for i := range filtered {
		key := groupKey(keyFields, &filtered[i])
		if _, seen := groups[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		groups[key] = append(groups[key], filtered[i])
	}

	var correlations []models.EventCorrelation
	for _, key := range keyOrder {
		group := groups[key]
		if len(group) < rule.MinEvents || len(group) > rule.MaxEvents {
			continue
		}

		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})
		timeSpan := group[len(group)-1].Timestamp.Sub(group[0].Timestamp)
		if timeSpan > rule.TimeWindow {
			continue
		}

		pattern := buildPattern(group, timeSpan)
		correlation := models.EventCorrelation{
			RuleID:            rule.ID,
			RuleName:          rule.Name,
			CorrelationKey:    key,
			Events:            group,
			Pattern:           pattern,
			RiskScore:         riskScore(&pattern, rule),
			Confidence:        rule.Confidence,
			Priority:          rule.Priority,
			Indicators:        extractIndicators(group, rule),
			AffectedResources: affectedResources(group),
			DetectedAt:        group[len(group)-1].Timestamp,
		}
		correlations = append(correlations, correlation)
	}
	return correlations, nil
}

func matchesAll(matchers []matcher, e *models.SecurityEvent) bool {
	for i := range matchers {
		if !matchers[i].matches(e) {
			return false
		}
	}
	return true
}

// buildPattern summarizes a sorted group.
func buildPattern(group []models.SecurityEvent, timeSpan time.Duration) models.CorrelationPattern {
	actors := make(map[string]struct{})
	ips := make(map[string]struct{})
	tenants := make(map[string]struct{})
	actions := make(map[string]struct{})
	var actionOrder []string

	for i := range group {
		e := &group[i]
		if e.ActorID != "" {
			actors[e.ActorID] = struct{}{}
		}
		if e.IPAddress != "" {
			ips[e.IPAddress] = struct{}{}
		}
		if e.TenantID != "" {
			tenants[e.TenantID] = struct{}{}
		}
		if _, seen := actions[e.Action]; !seen {
			actions[e.Action] = struct{}{}
			actionOrder = append(actionOrder, e.Action)
		}
	}

	return models.CorrelationPattern{
		EventCount:    len(group),
		TimeSpan:      timeSpan,
		Frequency:     frequency(len(group), timeSpan),
		UniqueActors:  len(actors),
		UniqueIPs:     len(ips),
		UniqueTenants: len(tenants),
		ActionTypes:   actionOrder,
	}
}

// affectedResources lists the distinct resource identifiers in the group.
func affectedResources(group []models.SecurityEvent) []string {
	seen := make(map[string]struct{})
	var resources []string
	for i := range group {
		e := &group[i]
		if e.Resource == "" {
			continue
		}
		name := e.Resource
		if e.ResourceID != "" {
			name = e.Resource + ":" + e.ResourceID
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			resources = append(resources, name)
		}
	}
	return resources
}
