package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayops-systems/sentinel/internal/enrichment"
	"github.com/stayops-systems/sentinel/internal/models"
)

var testTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// stubIntel returns a fixed indicator for one value and errors for another.
type stubIntel struct {
	known map[string]*models.ThreatIndicator
	err   error
}

func (s *stubIntel) Lookup(_ context.Context, _ models.ThreatIndicatorType, value string) (*models.ThreatIndicator, error) {
	if s.err != nil {
		return nil, s.err
	}
	if ind, ok := s.known[value]; ok {
		return ind, nil
	}
	return nil, enrichment.ErrNotFound
}

func TestClassify_KnownActions(t *testing.T) {
	c := New(WithClock(func() time.Time { return testTime }))
	ctx := context.Background()

	tests := []struct {
		action     string
		threatType models.ThreatType
		minScore   int
	}{
		{models.ActionUnauthorizedAccess, models.ThreatPrivilegeProbing, 70},
		{models.ActionFailedLogin, models.ThreatBruteForce, 1},
		{models.ActionBulkExport, models.ThreatDataExfiltration, 60},
		{models.ActionRefundIssued, models.ThreatFinancialTamper, 40},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			event := &models.SecurityEvent{
				ID: 1, Timestamp: testTime, ActorID: "42",
				Action: tt.action, IPAddress: "10.0.0.1", Resource: "ledger", ResourceID: "77",
			}
			threat, ok := c.Classify(ctx, event)
			require.True(t, ok)
			assert.Equal(t, tt.threatType, threat.ThreatType)
			assert.GreaterOrEqual(t, threat.RiskScore, tt.minScore)
			assert.Equal(t, models.ThreatActive, threat.Status)
			assert.Equal(t, int64(1), threat.SourceEventID)
			assert.Equal(t, []string{"ledger:77"}, threat.AffectedResources)
			assert.NotEmpty(t, threat.ThreatID)
			assert.Len(t, threat.Indicators, 2)
		})
	}
}

func TestClassify_IrrelevantAction(t *testing.T) {
	c := New()
	threat, ok := c.Classify(context.Background(), &models.SecurityEvent{ID: 2, Action: "VIEW_REPORT"})
	assert.False(t, ok)
	assert.Nil(t, threat)
}

func TestClassify_EnrichmentBoost(t *testing.T) {
	intel := &stubIntel{known: map[string]*models.ThreatIndicator{
		"198.51.100.7": {Type: models.IndicatorIP, Value: "198.51.100.7", Confidence: 90, Source: "feed:abuse"},
	}}
	c := New(WithIntel(intel), WithClock(func() time.Time { return testTime }))

	event := &models.SecurityEvent{ID: 3, Timestamp: testTime, Action: models.ActionFailedLogin, IPAddress: "198.51.100.7"}
	threat, ok := c.Classify(context.Background(), event)
	require.True(t, ok)
	assert.Equal(t, defaultConfidence+enrichmentBoost, threat.Confidence)
	assert.Equal(t, 90, threat.Indicators[0].Confidence)
	assert.Equal(t, "feed:abuse", threat.Indicators[0].Source)
}

func TestClassify_EnrichmentFailureIsFailOpen(t *testing.T) {
	intel := &stubIntel{err: errors.New("redis down")}
	c := New(WithIntel(intel))

	threat, ok := c.Classify(context.Background(), &models.SecurityEvent{
		ID: 4, Timestamp: testTime, Action: models.ActionUnauthorizedAccess, IPAddress: "10.0.0.9",
	})
	require.True(t, ok)
	assert.Equal(t, defaultConfidence, threat.Confidence)
}

func TestFromCorrelation(t *testing.T) {
	c := New(WithClock(func() time.Time { return testTime }))
	correlation := &models.EventCorrelation{
		RuleID:   "brute-force-actor",
		RuleName: "Brute force per actor",
		Events: []models.SecurityEvent{
			{ID: 1, Timestamp: testTime, Action: models.ActionFailedLogin},
			{ID: 2, Timestamp: testTime.Add(time.Minute), Action: models.ActionFailedLogin},
		},
		Pattern:           models.CorrelationPattern{EventCount: 2},
		RiskScore:         82,
		Confidence:        80,
		Indicators:        []models.ThreatIndicator{{Type: models.IndicatorActor, Value: "42", Confidence: 70}},
		AffectedResources: []string{"session"},
		DetectedAt:        testTime.Add(time.Minute),
	}

	threat := c.FromCorrelation(correlation)
	assert.Equal(t, models.ThreatCoordinatedAttack, threat.ThreatType)
	assert.Equal(t, 82, threat.RiskScore)
	assert.Equal(t, 80, threat.Confidence)
	assert.Equal(t, "brute-force-actor", threat.CorrelationRuleID)
	assert.Len(t, threat.Timeline, 3) // two events + rule match entry
	assert.Equal(t, correlation.Indicators, threat.Indicators)
}
