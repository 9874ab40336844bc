package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayops-systems/sentinel/internal/models"
)

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-123")
	require.NoError(t, c.StartMonitor())
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClientSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "monitor already running"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	err := c.StartMonitor()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "monitor already running")
}

func TestListIncidentsFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/incidents", r.URL.Path)
		assert.Equal(t, "closed", r.URL.Query().Get("status"))
		assert.Equal(t, "high", r.URL.Query().Get("severity"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]*models.SecurityIncident{
			{ID: "inc-1", Status: models.IncidentClosed, Severity: models.SeverityHigh},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	incidents, err := c.ListIncidents("closed", "high")
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "inc-1", incidents[0].ID)
}

func TestLoginReturnsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/token", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "key-abc", body["api_key"])
		assert.Equal(t, "ops", body["subject"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"token": "jwt-xyz", "expires_in": 86400})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	token, err := c.Login("key-abc", "ops")
	require.NoError(t, err)
	assert.Equal(t, "jwt-xyz", token)
}
