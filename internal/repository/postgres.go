package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stayops-systems/sentinel/internal/models"
)

const queryTimeout = 5 * time.Second

// PostgresRepository implements EventSource, IncidentStore and
// ResponseAuditStore against the StayOps database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects a pooled repository.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

// Close releases the pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
}

const eventColumns = `id, created_at, actor_id, tenant_id, action, resource, resource_id, ip_address, details`

// ReadSince returns up to limit events with id > sinceID, ordered by id.
func (r *PostgresRepository) ReadSince(ctx context.Context, sinceID int64, limit int) ([]models.SecurityEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM audit_events WHERE id > $1 ORDER BY id ASC LIMIT $2`,
		sinceID, limit)
	if err != nil {
		return nil, fmt.Errorf("read events since %d: %w", sinceID, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ReadRecent returns events inside the trailing window, ordered by timestamp.
func (r *PostgresRepository) ReadRecent(ctx context.Context, window time.Duration, limit int) ([]models.SecurityEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM audit_events WHERE created_at >= now() - $1::interval ORDER BY created_at ASC LIMIT $2`,
		window, limit)
	if err != nil {
		return nil, fmt.Errorf("read recent events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]models.SecurityEvent, error) {
	var events []models.SecurityEvent
	for rows.Next() {
		var e models.SecurityEvent
		var actorID, tenantID, resource, resourceID, ipAddress *string
		var details []byte
		if err := rows.Scan(&e.ID, &e.Timestamp, &actorID, &tenantID, &e.Action, &resource, &resourceID, &ipAddress, &details); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.ActorID = deref(actorID)
		e.TenantID = deref(tenantID)
		e.Resource = deref(resource)
		e.ResourceID = deref(resourceID)
		e.IPAddress = deref(ipAddress)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				// A malformed details payload should not hide the event.
				e.Details = map[string]interface{}{"_raw": string(details)}
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Create persists a new incident. The id is generated when absent.
func (r *PostgresRepository) Create(ctx context.Context, incident *models.SecurityIncident) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if incident.ID == "" {
		id, _ := uuid.NewV7()
		incident.ID = id.String()
	}

	timeline, err := json.Marshal(incident.Timeline)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	evidence, err := json.Marshal(incident.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	actions, err := json.Marshal(incident.ResponseActions)
	if err != nil {
		return fmt.Errorf("marshal response actions: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO security_incidents
			(id, threat_id, threat_type, severity, status, title, timeline, evidence, response_actions, resolution, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		incident.ID, incident.ThreatID, incident.ThreatType, incident.Severity, incident.Status,
		incident.Title, timeline, evidence, actions, incident.Resolution,
		incident.CreatedAt, incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// Update applies a partial patch to an incident.
func (r *PostgresRepository) Update(ctx context.Context, id string, patch *models.IncidentPatch) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	incident, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if patch.Status != nil {
		incident.Status = *patch.Status
		if *patch.Status == models.IncidentClosed && incident.ClosedAt == nil {
			now := time.Now().UTC()
			incident.ClosedAt = &now
		}
	}
	if patch.Resolution != nil {
		incident.Resolution = *patch.Resolution
	}
	if len(patch.ResponseActions) > 0 {
		incident.ResponseActions = append(incident.ResponseActions, patch.ResponseActions...)
	}
	if len(patch.TimelineAppend) > 0 {
		incident.Timeline = append(incident.Timeline, patch.TimelineAppend...)
	}
	incident.UpdatedAt = time.Now().UTC()

	timeline, err := json.Marshal(incident.Timeline)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	actions, err := json.Marshal(incident.ResponseActions)
	if err != nil {
		return fmt.Errorf("marshal response actions: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE security_incidents
		SET status = $2, resolution = $3, timeline = $4, response_actions = $5, updated_at = $6, closed_at = $7
		WHERE id = $1`,
		id, incident.Status, incident.Resolution, timeline, actions, incident.UpdatedAt, incident.ClosedAt)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIncidentNotFound
	}
	return nil
}

const incidentColumns = `id, threat_id, threat_type, severity, status, title, timeline, evidence, response_actions, resolution, created_at, updated_at, closed_at`

// Get fetches one incident.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.SecurityIncident, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `SELECT `+incidentColumns+` FROM security_incidents WHERE id = $1`, id)
	return scanIncident(row)
}

// GetByThreatID fetches the incident created for a threat, if any.
func (r *PostgresRepository) GetByThreatID(ctx context.Context, threatID string) (*models.SecurityIncident, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `SELECT `+incidentColumns+` FROM security_incidents WHERE threat_id = $1`, threatID)
	return scanIncident(row)
}

// List returns incidents newest first, filtered by status and severity.
func (r *PostgresRepository) List(ctx context.Context, filter IncidentFilter) ([]*models.SecurityIncident, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT ` + incidentColumns + ` FROM security_incidents WHERE 1=1`
	args := []interface{}{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		query += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var incidents []*models.SecurityIncident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, incident)
	}
	return incidents, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIncident(row rowScanner) (*models.SecurityIncident, error) {
	var incident models.SecurityIncident
	var timeline, evidence, actions []byte
	var resolution *string
	err := row.Scan(&incident.ID, &incident.ThreatID, &incident.ThreatType, &incident.Severity,
		&incident.Status, &incident.Title, &timeline, &evidence, &actions,
		&resolution, &incident.CreatedAt, &incident.UpdatedAt, &incident.ClosedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrIncidentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan incident: %w", err)
	}
	incident.Resolution = deref(resolution)
	if len(timeline) > 0 {
		if err := json.Unmarshal(timeline, &incident.Timeline); err != nil {
			return nil, fmt.Errorf("unmarshal timeline: %w", err)
		}
	}
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &incident.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshal evidence: %w", err)
		}
	}
	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &incident.ResponseActions); err != nil {
			return nil, fmt.Errorf("unmarshal response actions: %w", err)
		}
	}
	return &incident, nil
}

// Append durably records one response engine invocation.
func (r *PostgresRepository) Append(ctx context.Context, result *models.AutomatedResponseResult) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal response result: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO response_audit (threat_id, incident_id, success, payload, executed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		result.ThreatID, result.IncidentID, result.Success, payload, result.ExecutedAt)
	if err != nil {
		return fmt.Errorf("append response audit: %w", err)
	}
	return nil
}

// InsertEvent writes an audit event. The pipeline never calls this; it
// exists for the event seeder and integration tests.
func (r *PostgresRepository) InsertEvent(ctx context.Context, e *models.SecurityEvent) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	details, err := json.Marshal(e.Details)
	if err != nil {
		return 0, fmt.Errorf("marshal details: %w", err)
	}
	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO audit_events (created_at, actor_id, tenant_id, action, resource, resource_id, ip_address, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		e.Timestamp, nullable(e.ActorID), nullable(e.TenantID), e.Action,
		nullable(e.Resource), nullable(e.ResourceID), nullable(e.IPAddress), details).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
