package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stayops-systems/sentinel/internal/models"
)

// Pack is the on-disk yaml format for a rule pack. Durations are
// strings ("15m", "1h") parsed at load time.
type Pack struct {
	Name             string                `yaml:"name"`
	CorrelationRules []correlationRuleYAML `yaml:"correlation_rules"`
	ResponseRules    []responseRuleYAML    `yaml:"response_rules"`
}

type correlationRuleYAML struct {
	ID             string                 `yaml:"id"`
	Name           string                 `yaml:"name"`
	Description    string                 `yaml:"description"`
	TimeWindow     string                 `yaml:"time_window"`
	MinEvents      int                    `yaml:"min_events"`
	MaxEvents      int                    `yaml:"max_events"`
	Conditions     []models.RuleCondition `yaml:"conditions"`
	RiskMultiplier float64                `yaml:"risk_multiplier"`
	Confidence     int                    `yaml:"confidence"`
	Priority       int                    `yaml:"priority"`
	Enabled        *bool                  `yaml:"enabled"`
}

type responseRuleYAML struct {
	ID          string                     `yaml:"id"`
	Name        string                     `yaml:"name"`
	Description string                     `yaml:"description"`
	Conditions  []models.ResponseCondition `yaml:"conditions"`
	Actions     []models.ResponseAction    `yaml:"actions"`
	Priority    int                        `yaml:"priority"`
	Enabled     *bool                      `yaml:"enabled"`
	AutoExecute bool                       `yaml:"auto_execute"`
}

func (y *correlationRuleYAML) toModel() (models.CorrelationRule, error) {
	window, err := time.ParseDuration(y.TimeWindow)
	if err != nil {
		return models.CorrelationRule{}, fmt.Errorf("rule %s: invalid time_window %q: %w", y.ID, y.TimeWindow, err)
	}
	enabled := true
	if y.Enabled != nil {
		enabled = *y.Enabled
	}
	return models.CorrelationRule{
		ID:             y.ID,
		Name:           y.Name,
		Description:    y.Description,
		TimeWindow:     window,
		MinEvents:      y.MinEvents,
		MaxEvents:      y.MaxEvents,
		Conditions:     y.Conditions,
		RiskMultiplier: y.RiskMultiplier,
		Confidence:     y.Confidence,
		Priority:       y.Priority,
		Enabled:        enabled,
	}, nil
}

func (y *responseRuleYAML) toModel() models.ResponseRule {
	enabled := true
	if y.Enabled != nil {
		enabled = *y.Enabled
	}
	return models.ResponseRule{
		ID:          y.ID,
		Name:        y.Name,
		Description: y.Description,
		Conditions:  y.Conditions,
		Actions:     y.Actions,
		Priority:    y.Priority,
		Enabled:     enabled,
		AutoExecute: y.AutoExecute,
	}
}

// LoadPack parses and validates a single pack file. Invalid packs leave
// the caller's stores untouched.
func LoadPack(path string) ([]models.CorrelationRule, []models.ResponseRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read pack %s: %w", path, err)
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, nil, fmt.Errorf("parse pack %s: %w", path, err)
	}

	correlations := make([]models.CorrelationRule, 0, len(pack.CorrelationRules))
	for i := range pack.CorrelationRules {
		rule, err := pack.CorrelationRules[i].toModel()
		if err != nil {
			return nil, nil, fmt.Errorf("pack %s: %w", path, err)
		}
		if err := rule.Validate(); err != nil {
			return nil, nil, fmt.Errorf("pack %s: %w", path, err)
		}
		correlations = append(correlations, rule)
	}

	responses := make([]models.ResponseRule, 0, len(pack.ResponseRules))
	for i := range pack.ResponseRules {
		rule := pack.ResponseRules[i].toModel()
		if err := rule.Validate(); err != nil {
			return nil, nil, fmt.Errorf("pack %s: %w", path, err)
		}
		responses = append(responses, rule)
	}

	return correlations, responses, nil
}

// LoadDir loads every *.yaml / *.yml pack in dir, in lexical order so
// reloads are deterministic. One invalid pack fails the whole load.
func LoadDir(dir string) ([]models.CorrelationRule, []models.ResponseRule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read rules dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	var correlations []models.CorrelationRule
	var responses []models.ResponseRule
	for _, path := range paths {
		c, r, err := LoadPack(path)
		if err != nil {
			return nil, nil, err
		}
		correlations = append(correlations, c...)
		responses = append(responses, r...)
	}
	return correlations, responses, nil
}
