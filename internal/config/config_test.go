package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Postgres.Host)
	assert.Equal(t, "stayops_audit", cfg.Database.Postgres.Database)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Monitoring.IngestionInterval)
	assert.Equal(t, 10*time.Second, cfg.Monitoring.DeepScanInterval)
	assert.Equal(t, 15*time.Second, cfg.Monitoring.CorrelationInterval)
	assert.Equal(t, 20, cfg.Monitoring.AutoResponsePerHour)
	assert.Equal(t, 60, cfg.Monitoring.AutoResponseMinRisk)
	assert.Equal(t, "rules.d", cfg.Rules.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentinel.yaml")
	content := `
server:
  port: 9999
database:
  postgres:
    host: db.internal
    password: secret
monitoring:
  ingestion_interval: 2s
  auto_response_per_hour: 5
rules:
  watch: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, 2*time.Second, cfg.Monitoring.IngestionInterval)
	assert.Equal(t, 5, cfg.Monitoring.AutoResponsePerHour)
	assert.False(t, cfg.Rules.Watch)
	// Untouched values keep defaults.
	assert.Equal(t, 15*time.Second, cfg.Monitoring.CorrelationInterval)
}

func TestLoad_InvalidMonitoringRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentinel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitoring:\n  max_events_per_batch: 0\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid monitoring config")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/sentinel.yaml")
	assert.Error(t, err)
}

func TestPostgresConnString(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "sentinel", Password: "pw", Database: "audit", SSLMode: "disable"}
	assert.Equal(t, "postgres://sentinel:pw@db:5432/audit?sslmode=disable", p.ConnString())
}
