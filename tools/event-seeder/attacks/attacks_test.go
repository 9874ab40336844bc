package attacks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayops-systems/sentinel/internal/models"
)

func TestRegistryHasBuiltins(t *testing.T) {
	for _, name := range []string{"brute-force", "export-burst", "financial-tamper"} {
		p, ok := Get(name)
		require.True(t, ok, "pattern %s not registered", name)
		assert.Equal(t, name, p.Name())
		assert.NotEmpty(t, p.Description())
	}
}

func TestBruteForceShape(t *testing.T) {
	p, _ := Get("brute-force")
	now := time.Now()

	events, err := p.Generate(&Config{
		Now: now,
		Params: map[string]interface{}{
			"actor":    "night.audit",
			"attempts": 10,
			"ip-count": 2,
		},
	})
	require.NoError(t, err)
	require.Len(t, events, 10)

	ips := make(map[string]bool)
	for _, e := range events {
		assert.Equal(t, models.ActionFailedLogin, e.Action)
		assert.Equal(t, "night.audit", e.ActorID)
		assert.False(t, e.Timestamp.After(now))
		ips[e.IPAddress] = true
	}
	assert.Len(t, ips, 2)
}

func TestBruteForceRejectsBadParams(t *testing.T) {
	p, _ := Get("brute-force")
	_, err := p.Generate(&Config{
		Now:    time.Now(),
		Params: map[string]interface{}{"attempts": 0},
	})
	assert.Error(t, err)
}

func TestExportBurstSingleActor(t *testing.T) {
	p, _ := Get("export-burst")

	events, err := p.Generate(&Config{
		Now:    time.Now(),
		Params: p.DefaultParams(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)

	for _, e := range events {
		assert.Equal(t, models.ActionBulkExport, e.Action)
		assert.Equal(t, events[0].ActorID, e.ActorID)
		assert.Equal(t, events[0].IPAddress, e.IPAddress)
		assert.NotEmpty(t, e.Resource)
	}
}

func TestFinancialTamperAlternatesActions(t *testing.T) {
	p, _ := Get("financial-tamper")

	events, err := p.Generate(&Config{
		Now:    time.Now(),
		Params: map[string]interface{}{"operations": 6},
	})
	require.NoError(t, err)
	require.Len(t, events, 6)

	refunds, voids := 0, 0
	for _, e := range events {
		switch e.Action {
		case models.ActionRefundIssued:
			refunds++
		case models.ActionInvoiceVoided:
			voids++
		default:
			t.Fatalf("unexpected action %s", e.Action)
		}
	}
	assert.Equal(t, 3, refunds)
	assert.Equal(t, 3, voids)
}

func TestStringParamParsing(t *testing.T) {
	cfg := &Config{Params: map[string]interface{}{
		"attempts": "15",
		"actor":    "tester",
	}}

	assert.Equal(t, 15, GetIntParam(cfg, "attempts", 1))
	assert.Equal(t, 1, GetIntParam(cfg, "missing", 1))
	assert.Equal(t, "tester", GetStringParam(cfg, "actor", "x"))
	assert.Equal(t, "x", GetStringParam(cfg, "missing", "x"))
}
