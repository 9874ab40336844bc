package response

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stayops-systems/sentinel/internal/logging"
	"github.com/stayops-systems/sentinel/internal/models"
)

// Enforcer applies enforcement decisions to the upstream platform.
// Implementations must be safe for concurrent use.
type Enforcer interface {
	// BlockIP blocks an IP address for the given duration (0 means the
	// enforcer's default).
	BlockIP(ctx context.Context, ip string, ttl time.Duration) error
	// LockAccount locks an actor account pending review.
	LockAccount(ctx context.Context, actorID string) error
	// RestrictResource revokes non-read access to a resource.
	RestrictResource(ctx context.Context, resource string) error
}

// AlertSink delivers alerts produced by response actions. The alerting
// dispatcher satisfies this.
type AlertSink interface {
	Dispatch(ctx context.Context, alert *models.Alert) error
}

// MemoryEnforcer records enforcement decisions in memory. It stands in
// for a platform integration and backs the enforcement status API.
type MemoryEnforcer struct {
	mu         sync.RWMutex
	blocked    map[string]time.Time // ip -> expiry
	locked     map[string]time.Time // actor -> locked at
	restricted map[string]time.Time // resource -> restricted at
	defaultTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewMemoryEnforcer builds an enforcer with the given default block TTL.
func NewMemoryEnforcer(defaultTTL time.Duration, logger *slog.Logger) *MemoryEnforcer {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryEnforcer{
		blocked:    make(map[string]time.Time),
		locked:     make(map[string]time.Time),
		restricted: make(map[string]time.Time),
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock overrides the enforcer clock for tests.
func (m *MemoryEnforcer) SetClock(now func() time.Time) { m.now = now }

func (m *MemoryEnforcer) BlockIP(_ context.Context, ip string, ttl time.Duration) error {
	if ip == "" {
		return fmt.Errorf("block: empty ip")
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	m.mu.Lock()
	m.blocked[ip] = m.now().Add(ttl)
	m.mu.Unlock()
	m.logger.Info("blocked source ip", logging.Component("enforcer"), slog.String("ip", ip), slog.Duration("ttl", ttl))
	return nil
}

func (m *MemoryEnforcer) LockAccount(_ context.Context, actorID string) error {
	if actorID == "" {
		return fmt.Errorf("lock: empty actor id")
	}
	m.mu.Lock()
	m.locked[actorID] = m.now()
	m.mu.Unlock()
	m.logger.Info("locked account", logging.Component("enforcer"), slog.String("actor_id", actorID))
	return nil
}

func (m *MemoryEnforcer) RestrictResource(_ context.Context, resource string) error {
	if resource == "" {
		return fmt.Errorf("restrict: empty resource")
	}
	m.mu.Lock()
	m.restricted[resource] = m.now()
	m.mu.Unlock()
	m.logger.Info("restricted resource", logging.Component("enforcer"), slog.String("resource", resource))
	return nil
}

// IsBlocked reports whether the ip has an unexpired block.
func (m *MemoryEnforcer) IsBlocked(ip string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	expiry, ok := m.blocked[ip]
	return ok && m.now().Before(expiry)
}

// IsLocked reports whether the actor account is locked.
func (m *MemoryEnforcer) IsLocked(actorID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locked[actorID]
	return ok
}

// blockHandler blocks every IP indicator on the threat.
type blockHandler struct {
	enforcer Enforcer
}

func (h *blockHandler) Execute(ctx context.Context, action models.ResponseAction, threat *models.ThreatIntelligence, _ *models.SecurityIncident) (map[string]interface{}, error) {
	ttl := paramDuration(action.Parameters, "duration")
	var blocked []string
	for _, ind := range threat.Indicators {
		if ind.Type != models.IndicatorIP {
			continue
		}
		if err := h.enforcer.BlockIP(ctx, ind.Value, ttl); err != nil {
			return map[string]interface{}{"blocked_ips": blocked}, err
		}
		blocked = append(blocked, ind.Value)
	}
	if len(blocked) == 0 {
		return nil, fmt.Errorf("no ip indicators to block")
	}
	return map[string]interface{}{"blocked_ips": blocked}, nil
}

// lockHandler locks every actor indicator on the threat.
type lockHandler struct {
	enforcer Enforcer
}

func (h *lockHandler) Execute(ctx context.Context, _ models.ResponseAction, threat *models.ThreatIntelligence, _ *models.SecurityIncident) (map[string]interface{}, error) {
	var locked []string
	for _, ind := range threat.Indicators {
		if ind.Type != models.IndicatorActor {
			continue
		}
		if err := h.enforcer.LockAccount(ctx, ind.Value); err != nil {
			return map[string]interface{}{"locked_accounts": locked}, err
		}
		locked = append(locked, ind.Value)
	}
	if len(locked) == 0 {
		return nil, fmt.Errorf("no actor indicators to lock")
	}
	return map[string]interface{}{"locked_accounts": locked}, nil
}

// restrictHandler restricts every affected resource on the threat.
type restrictHandler struct {
	enforcer Enforcer
}

func (h *restrictHandler) Execute(ctx context.Context, _ models.ResponseAction, threat *models.ThreatIntelligence, _ *models.SecurityIncident) (map[string]interface{}, error) {
	var restricted []string
	for _, resource := range threat.AffectedResources {
		if err := h.enforcer.RestrictResource(ctx, resource); err != nil {
			return map[string]interface{}{"restricted_resources": restricted}, err
		}
		restricted = append(restricted, resource)
	}
	if len(restricted) == 0 {
		return nil, fmt.Errorf("no affected resources to restrict")
	}
	return map[string]interface{}{"restricted_resources": restricted}, nil
}

// alertHandler raises a security team alert for the threat.
type alertHandler struct {
	alerts AlertSink
}

func (h *alertHandler) Execute(ctx context.Context, _ models.ResponseAction, threat *models.ThreatIntelligence, incident *models.SecurityIncident) (map[string]interface{}, error) {
	alert := buildAlert(threat, incident)
	alert.Title = fmt.Sprintf("Security alert: %s", threat.ThreatType)
	if err := h.alerts.Dispatch(ctx, alert); err != nil {
		return nil, err
	}
	return map[string]interface{}{"alert_id": alert.ID}, nil
}

// notifyHandler sends an informational notification, same delivery path
// as alerts but without the paging semantics.
type notifyHandler struct {
	alerts AlertSink
}

func (h *notifyHandler) Execute(ctx context.Context, _ models.ResponseAction, threat *models.ThreatIntelligence, incident *models.SecurityIncident) (map[string]interface{}, error) {
	alert := buildAlert(threat, incident)
	alert.Title = fmt.Sprintf("Security notice: %s", threat.ThreatType)
	if err := h.alerts.Dispatch(ctx, alert); err != nil {
		return nil, err
	}
	return map[string]interface{}{"alert_id": alert.ID}, nil
}

// logHandler records the threat in the structured log. It cannot fail.
type logHandler struct {
	logger *slog.Logger
}

func (h *logHandler) Execute(_ context.Context, _ models.ResponseAction, threat *models.ThreatIntelligence, _ *models.SecurityIncident) (map[string]interface{}, error) {
	h.logger.Info("threat recorded",
		logging.Component("response"),
		logging.ThreatID(threat.ThreatID),
		slog.String("threat_type", string(threat.ThreatType)),
		slog.Int("risk_score", threat.RiskScore),
		slog.Int("confidence", threat.Confidence))
	return nil, nil
}

func buildAlert(threat *models.ThreatIntelligence, incident *models.SecurityIncident) *models.Alert {
	id, _ := uuid.NewV7()
	alert := &models.Alert{
		ID:        id.String(),
		ThreatID:  threat.ThreatID,
		Severity:  models.SeverityForRiskScore(threat.RiskScore),
		Message:   fmt.Sprintf("%s detected with risk score %d (confidence %d)", threat.ThreatType, threat.RiskScore, threat.Confidence),
		RiskScore: threat.RiskScore,
		CreatedAt: time.Now().UTC(),
	}
	if incident != nil {
		alert.IncidentID = incident.ID
	}
	return alert
}

func paramDuration(params map[string]interface{}, key string) time.Duration {
	raw, ok := params[key]
	if !ok {
		return 0
	}
	s, ok := raw.(string)
	if !ok {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
