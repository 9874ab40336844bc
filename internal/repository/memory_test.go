package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayops-systems/sentinel/internal/models"
)

var testTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestMemoryRepository_ReadSince(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		repo.AddEvent(models.SecurityEvent{
			Timestamp: testTime.Add(time.Duration(i) * time.Minute),
			Action:    models.ActionFailedLogin,
		})
	}

	events, err := repo.ReadSince(ctx, 5, 100)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, int64(6), events[0].ID)
	assert.Equal(t, int64(10), events[4].ID)

	// Limit bounds the batch.
	events, err = repo.ReadSince(ctx, 0, 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	// Gaps in the id sequence are tolerated.
	repo.AddEvent(models.SecurityEvent{ID: 50, Timestamp: testTime, Action: models.ActionExport})
	events, err = repo.ReadSince(ctx, 10, 100)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(50), events[0].ID)
}

func TestMemoryRepository_ReadRecent(t *testing.T) {
	repo := NewMemoryRepository()
	repo.SetClock(func() time.Time { return testTime.Add(time.Hour) })

	repo.AddEvent(models.SecurityEvent{Timestamp: testTime, Action: "OLD"})                       // 60m old
	repo.AddEvent(models.SecurityEvent{Timestamp: testTime.Add(50 * time.Minute), Action: "NEW"}) // 10m old

	events, err := repo.ReadRecent(context.Background(), 30*time.Minute, 100)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "NEW", events[0].Action)
}

func TestMemoryRepository_Incidents(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	incident := &models.SecurityIncident{
		ThreatID:   "0195f2f0-0000-7000-8000-000000000001",
		ThreatType: models.ThreatBruteForce,
		Severity:   models.SeverityHigh,
		Status:     models.IncidentOpen,
		Title:      "Brute force against actor 42",
		CreatedAt:  testTime,
		UpdatedAt:  testTime,
	}
	require.NoError(t, repo.Create(ctx, incident))
	require.NotEmpty(t, incident.ID)

	got, err := repo.Get(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, incident.Title, got.Title)

	byThreat, err := repo.GetByThreatID(ctx, incident.ThreatID)
	require.NoError(t, err)
	assert.Equal(t, incident.ID, byThreat.ID)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrIncidentNotFound)

	closed := models.IncidentClosed
	resolution := "confirmed and locked"
	require.NoError(t, repo.Update(ctx, incident.ID, &models.IncidentPatch{
		Status:     &closed,
		Resolution: &resolution,
		ResponseActions: []models.ActionResult{
			{Type: models.ActionLock, RuleID: "lock-account", Success: true},
		},
	}))

	got, err = repo.Get(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IncidentClosed, got.Status)
	assert.Equal(t, resolution, got.Resolution)
	assert.NotNil(t, got.ClosedAt)
	assert.Len(t, got.ResponseActions, 1)
}

func TestMemoryRepository_ListFilter(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i, sev := range []models.IncidentSeverity{models.SeverityLow, models.SeverityHigh, models.SeverityHigh} {
		require.NoError(t, repo.Create(ctx, &models.SecurityIncident{
			ThreatID:  string(rune('a' + i)),
			Severity:  sev,
			Status:    models.IncidentOpen,
			CreatedAt: testTime.Add(time.Duration(i) * time.Minute),
			UpdatedAt: testTime,
		}))
	}

	high, err := repo.List(ctx, IncidentFilter{Severity: models.SeverityHigh})
	require.NoError(t, err)
	assert.Len(t, high, 2)
	// Newest first.
	assert.True(t, high[0].CreatedAt.After(high[1].CreatedAt))
}

func TestMemoryRepository_AuditAppend(t *testing.T) {
	repo := NewMemoryRepository()
	result := &models.AutomatedResponseResult{ThreatID: "t1", IncidentID: "i1", Success: false}
	require.NoError(t, repo.Append(context.Background(), result))
	require.NoError(t, repo.Append(context.Background(), result))
	assert.Len(t, repo.AuditLog(), 2)
}
