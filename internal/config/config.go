// Package config loads sentinel configuration from file and environment.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/stayops-systems/sentinel/internal/models"
)

// Config holds all configuration for the sentinel service
type Config struct {
	Server     ServerConfig            `mapstructure:"server"`
	Database   DatabaseConfig          `mapstructure:"database"`
	Redis      RedisConfig             `mapstructure:"redis"`
	NATS       NATSConfig              `mapstructure:"nats"`
	Audit      AuditConfig             `mapstructure:"audit"`
	Monitoring models.MonitoringConfig `mapstructure:"monitoring"`
	Rules      RulesConfig             `mapstructure:"rules"`
	Alerting   AlertingConfig          `mapstructure:"alerting"`
	Auth       AuthConfig              `mapstructure:"auth"`
	Logging    LoggingConfig           `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString builds a pgx connection string.
func (p *PostgresConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// RedisConfig holds Redis configuration for the intel cache and the
// response throttle
type RedisConfig struct {
	URL        string `mapstructure:"url"`
	Enabled    bool   `mapstructure:"enabled"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

// NATSConfig holds message bus configuration
type NATSConfig struct {
	URL      string `mapstructure:"url"`
	Enabled  bool   `mapstructure:"enabled"`
	Name     string `mapstructure:"name"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuditConfig holds OpenSearch configuration for the response audit log
type AuditConfig struct {
	URL         string `mapstructure:"url"`
	Enabled     bool   `mapstructure:"enabled"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Insecure    bool   `mapstructure:"insecure"`
	IndexPrefix string `mapstructure:"index_prefix"`
}

// RulesConfig holds rule pack configuration
type RulesConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

// AlertingConfig holds alert channel configuration
type AlertingConfig struct {
	WebhookURL      string `mapstructure:"webhook_url"`
	SlackWebhookURL string `mapstructure:"slack_webhook_url"`
	Timeout         string `mapstructure:"timeout"`
}

// AuthConfig holds API authentication settings
type AuthConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	JWTSecret    string `mapstructure:"jwt_secret"`
	TokenTTL     string `mapstructure:"token_ttl"`
	APIKeyHashes []string `mapstructure:"api_key_hashes"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override file config
	v.SetEnvPrefix("SENTINEL")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Monitoring.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitoring config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "sentinel")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "stayops_audit")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("nats.name", "sentinel")

	v.SetDefault("audit.url", "https://localhost:9200")
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.username", "admin")
	v.SetDefault("audit.password", "")
	v.SetDefault("audit.insecure", true)
	v.SetDefault("audit.index_prefix", "sentinel-response-audit")

	def := models.DefaultMonitoringConfig()
	v.SetDefault("monitoring.ingestion_interval", def.IngestionInterval)
	v.SetDefault("monitoring.deep_scan_interval", def.DeepScanInterval)
	v.SetDefault("monitoring.correlation_interval", def.CorrelationInterval)
	v.SetDefault("monitoring.correlation_window", def.CorrelationWindow)
	v.SetDefault("monitoring.deep_scan_window", def.DeepScanWindow)
	v.SetDefault("monitoring.max_events_per_batch", def.MaxEventsPerBatch)
	v.SetDefault("monitoring.auto_response_enabled", def.AutoResponseEnabled)
	v.SetDefault("monitoring.auto_response_per_hour", def.AutoResponsePerHour)
	v.SetDefault("monitoring.auto_response_min_risk", def.AutoResponseMinRisk)
	v.SetDefault("monitoring.correlation_min_risk", def.CorrelationMinRisk)
	v.SetDefault("monitoring.tick_timeout", def.TickTimeout)
	v.SetDefault("monitoring.stop_grace_period", def.StopGracePeriod)

	v.SetDefault("rules.dir", "rules.d")
	v.SetDefault("rules.watch", true)

	v.SetDefault("alerting.webhook_url", "")
	v.SetDefault("alerting.slack_webhook_url", "")
	v.SetDefault("alerting.timeout", "10s")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
