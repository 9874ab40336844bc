// Package repository provides access to the persisted audit log and the
// incident store. The audit log is read-only to the pipeline; incidents
// are append-biased and never hard-deleted.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/stayops-systems/sentinel/internal/models"
)

var (
	// ErrIncidentNotFound is returned for unknown incident ids.
	ErrIncidentNotFound = errors.New("incident not found")
)

// EventSource reads audit events. Implementations must tolerate gaps in
// the id sequence without erroring.
type EventSource interface {
	// ReadSince returns up to limit events with id > sinceID, ordered by id.
	ReadSince(ctx context.Context, sinceID int64, limit int) ([]models.SecurityEvent, error)

	// ReadRecent returns events with timestamp within the trailing window,
	// ordered by timestamp, bounded by limit.
	ReadRecent(ctx context.Context, window time.Duration, limit int) ([]models.SecurityEvent, error)
}

// IncidentFilter narrows incident listings.
type IncidentFilter struct {
	Status   models.IncidentStatus
	Severity models.IncidentSeverity
	Limit    int
}

// IncidentStore persists security incidents.
type IncidentStore interface {
	Create(ctx context.Context, incident *models.SecurityIncident) error
	Update(ctx context.Context, id string, patch *models.IncidentPatch) error
	Get(ctx context.Context, id string) (*models.SecurityIncident, error)
	List(ctx context.Context, filter IncidentFilter) ([]*models.SecurityIncident, error)

	// GetByThreatID resolves the incident opened for a threat id, for
	// callers that hold a threat reference rather than an incident id.
	GetByThreatID(ctx context.Context, threatID string) (*models.SecurityIncident, error)
}

// ResponseAuditStore appends response engine invocations for replay.
type ResponseAuditStore interface {
	Append(ctx context.Context, result *models.AutomatedResponseResult) error
}
