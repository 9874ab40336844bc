package rules

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayops-systems/sentinel/internal/models"
)

const validPack = `
name: test-pack
correlation_rules:
  - id: brute-force-actor
    name: Brute force per actor
    time_window: 15m
    min_events: 5
    max_events: 100
    conditions:
      - field: action
        operator: equals
        value: FAILED_LOGIN
      - field: actor_id
        value: SAME
    risk_multiplier: 1.5
    confidence: 85
    priority: 10
response_rules:
  - id: lock-account
    name: Lock account
    conditions:
      - field: risk_score
        operator: greater_than
        value: "75"
    actions:
      - type: lock
      - type: log
    priority: 5
    auto_execute: true
`

func writePack(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPack(t *testing.T) {
	dir := t.TempDir()
	path := writePack(t, dir, "pack.yaml", validPack)

	correlations, responses, err := LoadPack(path)
	require.NoError(t, err)
	require.Len(t, correlations, 1)
	require.Len(t, responses, 1)

	c := correlations[0]
	assert.Equal(t, "brute-force-actor", c.ID)
	assert.Equal(t, 15*time.Minute, c.TimeWindow)
	assert.True(t, c.Enabled) // defaults to enabled when omitted
	assert.Equal(t, []models.EventField{models.FieldActorID}, c.CorrelationFields())

	r := responses[0]
	assert.Equal(t, "lock-account", r.ID)
	assert.True(t, r.AutoExecute)
	assert.Len(t, r.Actions, 2)
}

func TestLoadPack_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	path := writePack(t, dir, "pack.yaml", `
correlation_rules:
  - id: broken
    name: Broken
    time_window: fifteen minutes
    min_events: 5
    max_events: 10
    conditions:
      - field: action
        operator: equals
        value: FAILED_LOGIN
    risk_multiplier: 1.0
    confidence: 50
`)
	_, _, err := LoadPack(path)
	assert.ErrorContains(t, err, "invalid time_window")
}

func TestLoadPack_EmptyConditionsRejected(t *testing.T) {
	dir := t.TempDir()
	path := writePack(t, dir, "pack.yaml", `
correlation_rules:
  - id: match-all
    name: Match all
    time_window: 5m
    min_events: 2
    max_events: 10
    risk_multiplier: 1.0
    confidence: 50
`)
	_, _, err := LoadPack(path)
	assert.ErrorContains(t, err, "at least one condition")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "10-first.yaml", validPack)
	writePack(t, dir, "notes.txt", "not a pack")

	correlations, responses, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, correlations, 1)
	assert.Len(t, responses, 1)
}

func TestShippedDefaultPack(t *testing.T) {
	correlations, responses, err := LoadDir(filepath.Join("..", "..", "rules.d"))
	require.NoError(t, err)
	assert.NotEmpty(t, correlations)
	assert.NotEmpty(t, responses)

	store := NewCorrelationStore()
	require.NoError(t, store.Replace(correlations))
	respStore := NewResponseStore()
	require.NoError(t, respStore.Replace(responses))
}
