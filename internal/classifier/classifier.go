// Package classifier converts single audit events into normalized
// threat records. Classification is a pure filter: unknown actions are
// never an error, and enrichment failures degrade to unenriched output.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stayops-systems/sentinel/internal/enrichment"
	"github.com/stayops-systems/sentinel/internal/logging"
	"github.com/stayops-systems/sentinel/internal/models"
)

// actionThreatTypes maps audit actions to threat categories. Actions
// absent from this table are not security relevant on their own.
var actionThreatTypes = map[string]models.ThreatType{
	models.ActionFailedLogin:        models.ThreatBruteForce,
	models.ActionUnauthorizedAccess: models.ThreatPrivilegeProbing,
	models.ActionPermissionDenied:   models.ThreatPrivilegeProbing,
	models.ActionBulkExport:         models.ThreatDataExfiltration,
	models.ActionRefundIssued:       models.ThreatFinancialTamper,
	models.ActionInvoiceVoided:      models.ThreatFinancialTamper,
	models.ActionRateChange:         models.ThreatFinancialTamper,
	models.ActionPasswordReset:      models.ThreatAccountTakeover,
	models.ActionRoleChanged:        models.ThreatAccountTakeover,
	models.ActionAPIKeyCreated:      models.ThreatUnusualActivity,
	models.ActionConfigChanged:      models.ThreatUnusualActivity,
}

// actionRiskScores assigns the base per-event risk. Anything matched by
// actionThreatTypes but absent here defaults to defaultRiskScore.
var actionRiskScores = map[string]int{
	models.ActionUnauthorizedAccess: 75,
	models.ActionBulkExport:         70,
	models.ActionPermissionDenied:   55,
	models.ActionInvoiceVoided:      60,
	models.ActionRefundIssued:       50,
	models.ActionRoleChanged:        65,
	models.ActionFailedLogin:        30,
	models.ActionPasswordReset:      35,
	models.ActionRateChange:         45,
	models.ActionAPIKeyCreated:      40,
	models.ActionConfigChanged:      40,
}

const (
	defaultRiskScore  = 25
	defaultConfidence = 60
	// enrichmentBoost is added to confidence when the threat-intel cache
	// already knows one of the event's indicators.
	enrichmentBoost = 20
	maxConfidence   = 100
)

// Classifier maps suspicious events to ThreatIntelligence records.
type Classifier struct {
	intel  enrichment.Provider
	logger *logging.Logger
	now    func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithIntel sets the enrichment provider.
func WithIntel(p enrichment.Provider) Option {
	return func(c *Classifier) { c.intel = p }
}

// WithLogger sets the classifier logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// WithClock overrides time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// New creates a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		intel:  enrichment.Noop{},
		logger: logging.Default().With(logging.Component("classifier")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify inspects a single event. It returns (nil, false) for events
// with no security relevance. It never returns an error: enrichment
// failures are logged and ignored so classification stays fail-open.
func (c *Classifier) Classify(ctx context.Context, event *models.SecurityEvent) (*models.ThreatIntelligence, bool) {
	threatType, ok := actionThreatTypes[event.Action]
	if !ok {
		return nil, false
	}

	score, ok := actionRiskScores[event.Action]
	if !ok {
		score = defaultRiskScore
	}

	now := c.now()
	indicators := c.eventIndicators(event)
	confidence := defaultConfidence
	for i := range indicators {
		known, err := c.intel.Lookup(ctx, indicators[i].Type, indicators[i].Value)
		if err != nil {
			if !errors.Is(err, enrichment.ErrNotFound) {
				c.logger.Warn("enrichment lookup failed", logging.EventID(event.ID), logging.Error(err))
			}
			continue
		}
		if known.Confidence > indicators[i].Confidence {
			indicators[i].Confidence = known.Confidence
		}
		indicators[i].Source = known.Source
		confidence = min(maxConfidence, confidence+enrichmentBoost)
	}

	threatID, _ := uuid.NewV7()
	threat := &models.ThreatIntelligence{
		ThreatID:          threatID.String(),
		ThreatType:        threatType,
		RiskScore:         score,
		Confidence:        confidence,
		Indicators:        indicators,
		AffectedResources: eventResources(event),
		Timeline: []models.TimelineEntry{{
			Timestamp:   event.Timestamp,
			Description: fmt.Sprintf("audit event %d: %s", event.ID, event.Action),
			Source:      "classifier",
		}},
		Status:        models.ThreatActive,
		SourceEventID: event.ID,
		DetectedAt:    now,
		UpdatedAt:     now,
	}
	return threat, true
}

// FromCorrelation converts a correlation engine result into a threat
// record for incident handling.
func (c *Classifier) FromCorrelation(correlation *models.EventCorrelation) *models.ThreatIntelligence {
	now := c.now()
	threatID, _ := uuid.NewV7()
	timeline := make([]models.TimelineEntry, 0, len(correlation.Events)+1)
	for i := range correlation.Events {
		e := &correlation.Events[i]
		timeline = append(timeline, models.TimelineEntry{
			Timestamp:   e.Timestamp,
			Description: fmt.Sprintf("audit event %d: %s", e.ID, e.Action),
			Source:      "correlation",
		})
	}
	timeline = append(timeline, models.TimelineEntry{
		Timestamp:   correlation.DetectedAt,
		Description: fmt.Sprintf("rule %q matched %d events (key %s)", correlation.RuleName, correlation.Pattern.EventCount, correlation.CorrelationKey),
		Source:      "correlation",
	})

	return &models.ThreatIntelligence{
		ThreatID:          threatID.String(),
		ThreatType:        models.ThreatCoordinatedAttack,
		RiskScore:         correlation.RiskScore,
		Confidence:        correlation.Confidence,
		Indicators:        correlation.Indicators,
		AffectedResources: correlation.AffectedResources,
		Timeline:          timeline,
		Status:            models.ThreatActive,
		CorrelationRuleID: correlation.RuleID,
		DetectedAt:        now,
		UpdatedAt:         now,
	}
}

func (c *Classifier) eventIndicators(event *models.SecurityEvent) []models.ThreatIndicator {
	var indicators []models.ThreatIndicator
	if event.IPAddress != "" {
		indicators = append(indicators, models.ThreatIndicator{
			Type:       models.IndicatorIP,
			Value:      event.IPAddress,
			Confidence: defaultConfidence,
			FirstSeen:  event.Timestamp,
			LastSeen:   event.Timestamp,
		})
	}
	if event.ActorID != "" {
		indicators = append(indicators, models.ThreatIndicator{
			Type:       models.IndicatorActor,
			Value:      event.ActorID,
			Confidence: defaultConfidence,
			FirstSeen:  event.Timestamp,
			LastSeen:   event.Timestamp,
		})
	}
	return indicators
}

func eventResources(event *models.SecurityEvent) []string {
	if event.Resource == "" {
		return nil
	}
	if event.ResourceID != "" {
		return []string{event.Resource + ":" + event.ResourceID}
	}
	return []string{event.Resource}
}
