// Package response executes automated mitigations for classified threats.
//
// The engine evaluates response rules against a threat record in priority
// order and dispatches each matched rule's actions to the registered
// handlers. A failing action never aborts the remaining actions or rules;
// every attempt is recorded and the aggregate result is appended to the
// response audit log.
package response

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stayops-systems/sentinel/internal/logging"
	"github.com/stayops-systems/sentinel/internal/models"
	"github.com/stayops-systems/sentinel/internal/repository"
)

// RuleSource supplies the response rules to evaluate, sorted by priority
// ascending. rules.ResponseStore satisfies this.
type RuleSource interface {
	List() []models.ResponseRule
}

// Handler executes one response action type against a threat.
type Handler interface {
	Execute(ctx context.Context, action models.ResponseAction, threat *models.ThreatIntelligence, incident *models.SecurityIncident) (map[string]interface{}, error)
}

// Engine matches threats to response rules and runs their actions.
type Engine struct {
	rules    RuleSource
	handlers map[models.ResponseActionType]Handler
	audit    repository.ResponseAuditStore
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithHandler registers or replaces the handler for an action type.
func WithHandler(t models.ResponseActionType, h Handler) Option {
	return func(e *Engine) { e.handlers[t] = h }
}

// NewEngine builds an engine with the default handler set. Enforcement
// actions (block, lock, restrict) go through enforcer; alert and notify
// actions go through alerts.
func NewEngine(rules RuleSource, audit repository.ResponseAuditStore, enforcer Enforcer, alerts AlertSink, opts ...Option) *Engine {
	e := &Engine{
		rules:  rules,
		audit:  audit,
		logger: slog.Default(),
		now:    time.Now,
	}
	e.handlers = map[models.ResponseActionType]Handler{
		models.ActionBlock:    &blockHandler{enforcer: enforcer},
		models.ActionLock:     &lockHandler{enforcer: enforcer},
		models.ActionRestrict: &restrictHandler{enforcer: enforcer},
		models.ActionAlert:    &alertHandler{alerts: alerts},
		models.ActionNotify:   &notifyHandler{alerts: alerts},
	}
	for _, opt := range opts {
		opt(e)
	}
	// The log handler needs the final logger, so it is installed after
	// options unless one was registered explicitly.
	if _, ok := e.handlers[models.ActionLog]; !ok {
		e.handlers[models.ActionLog] = &logHandler{logger: e.logger}
	}
	return e
}

// Execute runs every enabled, auto-executable rule whose conditions all
// match the threat, in priority order. It always appends the aggregate
// result to the audit log, even when nothing matched.
func (e *Engine) Execute(ctx context.Context, threat *models.ThreatIntelligence, incident *models.SecurityIncident) *models.AutomatedResponseResult {
	started := e.now()
	result := &models.AutomatedResponseResult{
		ThreatID:   threat.ThreatID,
		Success:    true,
		ExecutedAt: started,
	}
	if incident != nil {
		result.IncidentID = incident.ID
	}

	for _, rule := range e.rules.List() {
		if !rule.Enabled || !rule.AutoExecute {
			continue
		}
		if !e.matches(&rule, threat) {
			continue
		}
		result.RulesMatched = append(result.RulesMatched, rule.ID)
		e.logger.Info("response rule matched",
			logging.Component("response"),
			logging.RuleID(rule.ID),
			logging.ThreatID(threat.ThreatID))

		for _, action := range rule.Actions {
			ar := e.runAction(ctx, &rule, action, threat, incident)
			result.ActionsExecuted = append(result.ActionsExecuted, ar)
			if !ar.Success {
				result.Success = false
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", action.Type, ar.Message))
			}
		}
	}

	result.ExecutionTimeMS = e.now().Sub(started).Milliseconds()

	if err := e.audit.Append(ctx, result); err != nil {
		e.logger.Error("failed to append response audit record",
			logging.Component("response"),
			logging.ThreatID(threat.ThreatID),
			logging.Error(err))
	}
	return result
}

// runAction dispatches one action and converts any failure, including a
// handler panic, into a failed ActionResult.
func (e *Engine) runAction(ctx context.Context, rule *models.ResponseRule, action models.ResponseAction, threat *models.ThreatIntelligence, incident *models.SecurityIncident) models.ActionResult {
	ar := models.ActionResult{
		Type:      action.Type,
		RuleID:    rule.ID,
		StartedAt: e.now(),
	}

	handler, ok := e.handlers[action.Type]
	if !ok {
		ar.Message = fmt.Sprintf("no handler registered for action %q", action.Type)
		return ar
	}

	details, err := e.safeExecute(ctx, handler, action, threat, incident)
	ar.DurationMS = e.now().Sub(ar.StartedAt).Milliseconds()
	ar.Details = details
	if err != nil {
		ar.Message = err.Error()
		e.logger.Warn("response action failed",
			logging.Component("response"),
			logging.RuleID(rule.ID),
			logging.Action(string(action.Type)),
			logging.Error(err))
		return ar
	}
	ar.Success = true
	ar.Message = "ok"
	return ar
}

func (e *Engine) safeExecute(ctx context.Context, handler Handler, action models.ResponseAction, threat *models.ThreatIntelligence, incident *models.SecurityIncident) (details map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Execute(ctx, action, threat, incident)
}
