package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayops-systems/sentinel/internal/models"
)

func testCorrelationRule(id string) models.CorrelationRule {
	return models.CorrelationRule{
		ID:         id,
		Name:       "rule " + id,
		TimeWindow: 15 * time.Minute,
		MinEvents:  5,
		MaxEvents:  100,
		Conditions: []models.RuleCondition{
			{Field: models.FieldAction, Operator: models.OpEquals, Value: models.ActionFailedLogin},
		},
		RiskMultiplier: 1.0,
		Confidence:     70,
		Priority:       10,
		Enabled:        true,
	}
}

func testResponseRule(id string, priority int) models.ResponseRule {
	return models.ResponseRule{
		ID:   id,
		Name: "rule " + id,
		Conditions: []models.ResponseCondition{
			{Field: models.ThreatFieldRiskScore, Operator: models.OpGreaterThan, Value: "50"},
		},
		Actions:     []models.ResponseAction{{Type: models.ActionLog}},
		Priority:    priority,
		Enabled:     true,
		AutoExecute: true,
	}
}

func TestCorrelationStore_CRUD(t *testing.T) {
	store := NewCorrelationStore()

	require.NoError(t, store.Add(testCorrelationRule("a")))
	assert.ErrorIs(t, store.Add(testCorrelationRule("a")), ErrExists)

	got, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "rule a", got.Name)

	updated := testCorrelationRule("a")
	updated.Name = "renamed"
	require.NoError(t, store.Update(updated))
	got, _ = store.Get("a")
	assert.Equal(t, "renamed", got.Name)

	assert.ErrorIs(t, store.Update(testCorrelationRule("missing")), ErrNotFound)

	require.NoError(t, store.SetEnabled("a", false))
	got, _ = store.Get("a")
	assert.False(t, got.Enabled)

	require.NoError(t, store.Delete("a"))
	_, err = store.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete("a"), ErrNotFound)
}

func TestCorrelationStore_RejectsInvalid(t *testing.T) {
	store := NewCorrelationStore()

	bad := testCorrelationRule("bad")
	bad.Conditions = nil
	assert.Error(t, store.Add(bad))
	assert.Empty(t, store.List())
}

func TestCorrelationStore_ReplaceAtomic(t *testing.T) {
	store := NewCorrelationStore()
	require.NoError(t, store.Add(testCorrelationRule("keep")))

	bad := testCorrelationRule("bad")
	bad.TimeWindow = 0
	err := store.Replace([]models.CorrelationRule{testCorrelationRule("new"), bad})
	require.Error(t, err)

	// Failed replace leaves the previous set intact.
	rules := store.List()
	require.Len(t, rules, 1)
	assert.Equal(t, "keep", rules[0].ID)

	require.NoError(t, store.Replace([]models.CorrelationRule{testCorrelationRule("new")}))
	rules = store.List()
	require.Len(t, rules, 1)
	assert.Equal(t, "new", rules[0].ID)
}

func TestResponseStore_ListOrderedByPriority(t *testing.T) {
	store := NewResponseStore()
	require.NoError(t, store.Add(testResponseRule("slow", 100)))
	require.NoError(t, store.Add(testResponseRule("fast", 1)))
	require.NoError(t, store.Add(testResponseRule("mid", 50)))

	rules := store.List()
	require.Len(t, rules, 3)
	assert.Equal(t, []string{"fast", "mid", "slow"}, []string{rules[0].ID, rules[1].ID, rules[2].ID})
}

func TestResponseStore_ReplaceRejectsDuplicates(t *testing.T) {
	store := NewResponseStore()
	err := store.Replace([]models.ResponseRule{testResponseRule("x", 1), testResponseRule("x", 2)})
	assert.ErrorContains(t, err, "duplicate rule id")
}
