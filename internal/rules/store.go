// Package rules provides the injected, explicitly-owned rule stores for
// the correlation and response engines. Mutation goes through validated
// update APIs; the engines only ever read snapshots.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/stayops-systems/sentinel/internal/models"
)

var (
	// ErrNotFound is returned when a rule id is unknown.
	ErrNotFound = errors.New("rule not found")
	// ErrExists is returned when adding a rule whose id is taken.
	ErrExists = errors.New("rule already exists")
)

// CorrelationStore owns the correlation rule set.
type CorrelationStore struct {
	mu    sync.RWMutex
	rules map[string]models.CorrelationRule
}

// NewCorrelationStore creates an empty store.
func NewCorrelationStore() *CorrelationStore {
	return &CorrelationStore{rules: make(map[string]models.CorrelationRule)}
}

// Add inserts a validated rule.
func (s *CorrelationStore) Add(rule models.CorrelationRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid correlation rule: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, rule.ID)
	}
	s.rules[rule.ID] = rule
	return nil
}

// Update replaces an existing rule. The store is unchanged on validation
// failure.
func (s *CorrelationStore) Update(rule models.CorrelationRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid correlation rule: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, rule.ID)
	}
	s.rules[rule.ID] = rule
	return nil
}

// Delete removes a rule by id.
func (s *CorrelationStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.rules, id)
	return nil
}

// Get returns a rule by id.
func (s *CorrelationStore) Get(id string) (models.CorrelationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	if !ok {
		return models.CorrelationRule{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rule, nil
}

// List returns all rules sorted by id for stable iteration.
func (s *CorrelationStore) List() []models.CorrelationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CorrelationRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetEnabled toggles a rule without replacing it.
func (s *CorrelationStore) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rule.Enabled = enabled
	s.rules[id] = rule
	return nil
}

// Replace atomically swaps the whole rule set, used by pack reloads.
// Every rule must validate or the store is left untouched.
func (s *CorrelationStore) Replace(rules []models.CorrelationRule) error {
	next := make(map[string]models.CorrelationRule, len(rules))
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return fmt.Errorf("invalid correlation rule: %w", err)
		}
		if _, dup := next[rules[i].ID]; dup {
			return fmt.Errorf("duplicate rule id: %s", rules[i].ID)
		}
		next[rules[i].ID] = rules[i]
	}
	s.mu.Lock()
	s.rules = next
	s.mu.Unlock()
	return nil
}

// ResponseStore owns the response rule set.
type ResponseStore struct {
	mu    sync.RWMutex
	rules map[string]models.ResponseRule
}

// NewResponseStore creates an empty store.
func NewResponseStore() *ResponseStore {
	return &ResponseStore{rules: make(map[string]models.ResponseRule)}
}

// Add inserts a validated rule.
func (s *ResponseStore) Add(rule models.ResponseRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid response rule: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, rule.ID)
	}
	s.rules[rule.ID] = rule
	return nil
}

// Update replaces an existing rule.
func (s *ResponseStore) Update(rule models.ResponseRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid response rule: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, rule.ID)
	}
	s.rules[rule.ID] = rule
	return nil
}

// Delete removes a rule by id.
func (s *ResponseStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.rules, id)
	return nil
}

// Get returns a rule by id.
func (s *ResponseStore) Get(id string) (models.ResponseRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	if !ok {
		return models.ResponseRule{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rule, nil
}

// List returns all rules sorted by priority ascending, then id.
func (s *ResponseStore) List() []models.ResponseRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ResponseRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SetEnabled toggles a rule without replacing it.
func (s *ResponseStore) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rule.Enabled = enabled
	s.rules[id] = rule
	return nil
}

// Replace atomically swaps the whole rule set.
func (s *ResponseStore) Replace(rules []models.ResponseRule) error {
	next := make(map[string]models.ResponseRule, len(rules))
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return fmt.Errorf("invalid response rule: %w", err)
		}
		if _, dup := next[rules[i].ID]; dup {
			return fmt.Errorf("duplicate rule id: %s", rules[i].ID)
		}
		next[rules[i].ID] = rules[i]
	}
	s.mu.Lock()
	s.rules = next
	s.mu.Unlock()
	return nil
}
