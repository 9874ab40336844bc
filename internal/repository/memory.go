package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stayops-systems/sentinel/internal/models"
)

// MemoryRepository is an in-memory EventSource, IncidentStore and
// ResponseAuditStore for tests and dev mode.
type MemoryRepository struct {
	mu        sync.RWMutex
	events    []models.SecurityEvent
	nextID    int64
	incidents map[string]*models.SecurityIncident
	audit     []models.AutomatedResponseResult
	now       func() time.Time
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID:    1,
		incidents: make(map[string]*models.SecurityIncident),
		now:       time.Now,
	}
}

// AddEvent appends an event, assigning the next monotonic id when unset.
func (r *MemoryRepository) AddEvent(e models.SecurityEvent) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == 0 {
		e.ID = r.nextID
	}
	if e.ID >= r.nextID {
		r.nextID = e.ID + 1
	}
	r.events = append(r.events, e)
	return e.ID
}

// ReadSince returns up to limit events with id > sinceID, ordered by id.
func (r *MemoryRepository) ReadSince(_ context.Context, sinceID int64, limit int) ([]models.SecurityEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.SecurityEvent
	for _, e := range r.events {
		if e.ID > sinceID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ReadRecent returns events inside the trailing window ordered by timestamp.
func (r *MemoryRepository) ReadRecent(_ context.Context, window time.Duration, limit int) ([]models.SecurityEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cutoff := r.now().Add(-window)
	var out []models.SecurityEvent
	for _, e := range r.events {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SetClock overrides the window reference clock for tests.
func (r *MemoryRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Create stores a new incident.
func (r *MemoryRepository) Create(_ context.Context, incident *models.SecurityIncident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if incident.ID == "" {
		id, _ := uuid.NewV7()
		incident.ID = id.String()
	}
	stored := *incident
	r.incidents[incident.ID] = &stored
	return nil
}

// Update applies a patch.
func (r *MemoryRepository) Update(_ context.Context, id string, patch *models.IncidentPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	incident, ok := r.incidents[id]
	if !ok {
		return ErrIncidentNotFound
	}
	if patch.Status != nil {
		incident.Status = *patch.Status
		if *patch.Status == models.IncidentClosed && incident.ClosedAt == nil {
			now := r.now().UTC()
			incident.ClosedAt = &now
		}
	}
	if patch.Resolution != nil {
		incident.Resolution = *patch.Resolution
	}
	incident.ResponseActions = append(incident.ResponseActions, patch.ResponseActions...)
	incident.Timeline = append(incident.Timeline, patch.TimelineAppend...)
	incident.UpdatedAt = r.now().UTC()
	return nil
}

// Get fetches one incident.
func (r *MemoryRepository) Get(_ context.Context, id string) (*models.SecurityIncident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	incident, ok := r.incidents[id]
	if !ok {
		return nil, ErrIncidentNotFound
	}
	out := *incident
	return &out, nil
}

// GetByThreatID fetches the incident created for a threat.
func (r *MemoryRepository) GetByThreatID(_ context.Context, threatID string) (*models.SecurityIncident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, incident := range r.incidents {
		if incident.ThreatID == threatID {
			out := *incident
			return &out, nil
		}
	}
	return nil, ErrIncidentNotFound
}

// List returns incidents newest first.
func (r *MemoryRepository) List(_ context.Context, filter IncidentFilter) ([]*models.SecurityIncident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.SecurityIncident
	for _, incident := range r.incidents {
		if filter.Status != "" && incident.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && incident.Severity != filter.Severity {
			continue
		}
		copied := *incident
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Append records a response result.
func (r *MemoryRepository) Append(_ context.Context, result *models.AutomatedResponseResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = append(r.audit, *result)
	return nil
}

// AuditLog returns a copy of the recorded response results.
func (r *MemoryRepository) AuditLog() []models.AutomatedResponseResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AutomatedResponseResult, len(r.audit))
	copy(out, r.audit)
	return out
}
