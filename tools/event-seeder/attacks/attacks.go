// Package attacks generates suspicious audit-log activity patterns for
// exercising the detection pipeline against a live database.
package attacks

import (
	"strconv"
	"time"

	"github.com/stayops-systems/sentinel/internal/models"
)

// Config holds the shared knobs for pattern generation.
type Config struct {
	Now time.Time

	// Pattern-specific parameters. Common keys: actor, tenant, source-ip,
	// attempts, resource.
	Params map[string]interface{}
}

// Pattern generates the audit events of one suspicious activity scenario.
type Pattern interface {
	// Name is the scenario identifier used on the command line.
	Name() string

	// Description is a one-line human-readable summary.
	Description() string

	// Generate produces the scenario's events, oldest first.
	Generate(cfg *Config) ([]models.SecurityEvent, error)

	// DefaultParams returns the parameters Generate uses when none are given.
	DefaultParams() map[string]interface{}
}

// Registry holds all registered patterns.
var Registry = make(map[string]Pattern)

func Register(pattern Pattern) {
	Registry[pattern.Name()] = pattern
}

func Get(name string) (Pattern, bool) {
	p, ok := Registry[name]
	return p, ok
}

// List returns all registered pattern names.
func List() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	return names
}

// GetIntParam extracts an integer parameter, parsing from string if necessary.
func GetIntParam(cfg *Config, key string, defaultValue int) int {
	if cfg.Params == nil {
		return defaultValue
	}
	val, ok := cfg.Params[key]
	if !ok {
		return defaultValue
	}
	if intVal, ok := val.(int); ok {
		return intVal
	}
	if strVal, ok := val.(string); ok {
		if parsed, err := strconv.Atoi(strVal); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetStringParam extracts a string parameter.
func GetStringParam(cfg *Config, key string, defaultValue string) string {
	if cfg.Params == nil {
		return defaultValue
	}
	val, ok := cfg.Params[key]
	if !ok {
		return defaultValue
	}
	if strVal, ok := val.(string); ok {
		return strVal
	}
	return defaultValue
}
