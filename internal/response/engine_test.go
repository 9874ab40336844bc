package response

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayops-systems/sentinel/internal/models"
	"github.com/stayops-systems/sentinel/internal/repository"
)

type staticRules []models.ResponseRule

func (s staticRules) List() []models.ResponseRule { return s }

type stubEnforcer struct {
	blocked    []string
	locked     []string
	restricted []string
	blockErr   error
	blockPanic bool
}

func (s *stubEnforcer) BlockIP(_ context.Context, ip string, _ time.Duration) error {
	if s.blockPanic {
		panic("firewall client not initialized")
	}
	if s.blockErr != nil {
		return s.blockErr
	}
	s.blocked = append(s.blocked, ip)
	return nil
}

func (s *stubEnforcer) LockAccount(_ context.Context, actorID string) error {
	s.locked = append(s.locked, actorID)
	return nil
}

func (s *stubEnforcer) RestrictResource(_ context.Context, resource string) error {
	s.restricted = append(s.restricted, resource)
	return nil
}

type stubSink struct {
	alerts []*models.Alert
	err    error
}

func (s *stubSink) Dispatch(_ context.Context, alert *models.Alert) error {
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

func highRiskThreat() *models.ThreatIntelligence {
	return &models.ThreatIntelligence{
		ThreatID:   "0195f2f0-0000-7000-8000-0000000000aa",
		ThreatType: models.ThreatBruteForce,
		RiskScore:  95,
		Confidence: 85,
		Status:     models.ThreatActive,
		Indicators: []models.ThreatIndicator{
			{Type: models.IndicatorIP, Value: "203.0.113.7", Confidence: 80},
			{Type: models.IndicatorActor, Value: "42", Confidence: 75},
		},
		AffectedResources: []string{"reservations", "invoices"},
		DetectedAt:        time.Now().UTC(),
	}
}

func blockAndAlertRule() models.ResponseRule {
	return models.ResponseRule{
		ID:   "block-critical",
		Name: "Block critical threats",
		Conditions: []models.ResponseCondition{
			{Field: models.ThreatFieldRiskScore, Operator: models.OpGreaterThan, Value: "90"},
		},
		Actions: []models.ResponseAction{
			{Type: models.ActionBlock},
			{Type: models.ActionAlert},
		},
		Priority:    1,
		Enabled:     true,
		AutoExecute: true,
	}
}

func TestExecute_BlockAndAlert(t *testing.T) {
	enforcer := &stubEnforcer{}
	sink := &stubSink{}
	repo := repository.NewMemoryRepository()
	engine := NewEngine(staticRules{blockAndAlertRule()}, repo, enforcer, sink)

	result := engine.Execute(context.Background(), highRiskThreat(), nil)

	assert.True(t, result.Success)
	assert.Equal(t, []string{"block-critical"}, result.RulesMatched)
	require.Len(t, result.ActionsExecuted, 2)
	assert.Equal(t, models.ActionBlock, result.ActionsExecuted[0].Type)
	assert.Equal(t, models.ActionAlert, result.ActionsExecuted[1].Type)
	assert.Equal(t, []string{"203.0.113.7"}, enforcer.blocked)
	require.Len(t, sink.alerts, 1)
	assert.Equal(t, models.SeverityCritical, sink.alerts[0].Severity)

	// Every invocation leaves an audit record.
	require.Len(t, repo.AuditLog(), 1)
	assert.Equal(t, result.ThreatID, repo.AuditLog()[0].ThreatID)
}

// A failing first action is recorded but never aborts the remaining
// actions.
func TestExecute_FailingActionContinues(t *testing.T) {
	enforcer := &stubEnforcer{blockPanic: true}
	sink := &stubSink{}
	repo := repository.NewMemoryRepository()
	engine := NewEngine(staticRules{blockAndAlertRule()}, repo, enforcer, sink)

	result := engine.Execute(context.Background(), highRiskThreat(), nil)

	assert.False(t, result.Success)
	require.Len(t, result.ActionsExecuted, 2)
	assert.False(t, result.ActionsExecuted[0].Success)
	assert.Contains(t, result.ActionsExecuted[0].Message, "handler panic")
	assert.True(t, result.ActionsExecuted[1].Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "block")
	assert.Len(t, sink.alerts, 1)
}

func TestExecute_ErrorIsolatedPerAction(t *testing.T) {
	enforcer := &stubEnforcer{blockErr: errors.New("upstream timeout")}
	sink := &stubSink{}
	repo := repository.NewMemoryRepository()
	engine := NewEngine(staticRules{blockAndAlertRule()}, repo, enforcer, sink)

	result := engine.Execute(context.Background(), highRiskThreat(), nil)

	assert.False(t, result.Success)
	assert.False(t, result.ActionsExecuted[0].Success)
	assert.Equal(t, "upstream timeout", result.ActionsExecuted[0].Message)
	assert.True(t, result.ActionsExecuted[1].Success)
}

func TestExecute_SkipsDisabledAndManualRules(t *testing.T) {
	disabled := blockAndAlertRule()
	disabled.ID = "disabled"
	disabled.Enabled = false

	manual := blockAndAlertRule()
	manual.ID = "manual"
	manual.AutoExecute = false

	repo := repository.NewMemoryRepository()
	engine := NewEngine(staticRules{disabled, manual}, repo, &stubEnforcer{}, &stubSink{})

	result := engine.Execute(context.Background(), highRiskThreat(), nil)

	assert.True(t, result.Success)
	assert.Empty(t, result.RulesMatched)
	assert.Empty(t, result.ActionsExecuted)
	// The no-op run is still audited.
	assert.Len(t, repo.AuditLog(), 1)
}

func TestExecute_UnmatchedConditions(t *testing.T) {
	rule := blockAndAlertRule()
	rule.Conditions = []models.ResponseCondition{
		{Field: models.ThreatFieldRiskScore, Operator: models.OpGreaterThan, Value: "90"},
		{Field: models.ThreatFieldType, Operator: models.OpEquals, Value: string(models.ThreatDataExfiltration)},
	}
	engine := NewEngine(staticRules{rule}, repository.NewMemoryRepository(), &stubEnforcer{}, &stubSink{})

	result := engine.Execute(context.Background(), highRiskThreat(), nil)
	assert.Empty(t, result.RulesMatched)
}

func TestExecute_RulesRunInListOrder(t *testing.T) {
	lock := models.ResponseRule{
		ID:   "lock-account",
		Name: "Lock attacked accounts",
		Conditions: []models.ResponseCondition{
			{Field: models.ThreatFieldType, Operator: models.OpIn, Values: []string{"brute_force", "account_takeover"}},
		},
		Actions:     []models.ResponseAction{{Type: models.ActionLock}},
		Priority:    2,
		Enabled:     true,
		AutoExecute: true,
	}
	enforcer := &stubEnforcer{}
	engine := NewEngine(staticRules{blockAndAlertRule(), lock}, repository.NewMemoryRepository(), enforcer, &stubSink{})

	result := engine.Execute(context.Background(), highRiskThreat(), nil)

	assert.Equal(t, []string{"block-critical", "lock-account"}, result.RulesMatched)
	assert.Equal(t, []string{"42"}, enforcer.locked)
}

func TestExecute_RestrictUsesAffectedResources(t *testing.T) {
	rule := models.ResponseRule{
		ID:   "restrict-exfil",
		Name: "Restrict exfiltrated resources",
		Conditions: []models.ResponseCondition{
			{Field: models.ThreatFieldResources, Operator: models.OpContains, Value: "invoices"},
		},
		Actions:     []models.ResponseAction{{Type: models.ActionRestrict}},
		Enabled:     true,
		AutoExecute: true,
	}
	enforcer := &stubEnforcer{}
	engine := NewEngine(staticRules{rule}, repository.NewMemoryRepository(), enforcer, &stubSink{})

	result := engine.Execute(context.Background(), highRiskThreat(), nil)

	assert.True(t, result.Success)
	assert.Equal(t, []string{"reservations", "invoices"}, enforcer.restricted)
}

func TestExecute_IncidentIDCarriedThrough(t *testing.T) {
	engine := NewEngine(staticRules{blockAndAlertRule()}, repository.NewMemoryRepository(), &stubEnforcer{}, &stubSink{})

	incident := &models.SecurityIncident{ID: "inc-1", ThreatID: "t-1"}
	result := engine.Execute(context.Background(), highRiskThreat(), incident)

	assert.Equal(t, "inc-1", result.IncidentID)
}

func TestMemoryEnforcer(t *testing.T) {
	enforcer := NewMemoryEnforcer(time.Hour, nil)
	now := time.Now()
	enforcer.SetClock(func() time.Time { return now })

	require.NoError(t, enforcer.BlockIP(context.Background(), "203.0.113.7", 10*time.Minute))
	assert.True(t, enforcer.IsBlocked("203.0.113.7"))
	assert.False(t, enforcer.IsBlocked("198.51.100.1"))

	now = now.Add(11 * time.Minute)
	assert.False(t, enforcer.IsBlocked("203.0.113.7"))

	require.NoError(t, enforcer.LockAccount(context.Background(), "42"))
	assert.True(t, enforcer.IsLocked("42"))

	assert.Error(t, enforcer.BlockIP(context.Background(), "", 0))
	assert.Error(t, enforcer.LockAccount(context.Background(), ""))
}
