// Package enrichment provides indicator lookups against a threat-intel
// cache. The classifier consumes it optionally; absence degrades to
// classification without enrichment.
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stayops-systems/sentinel/internal/models"
)

// ErrNotFound is returned when no intelligence exists for an indicator.
var ErrNotFound = errors.New("indicator not found")

// Provider looks up known indicators of compromise.
type Provider interface {
	// Lookup returns intelligence for the indicator, or ErrNotFound.
	Lookup(ctx context.Context, indicatorType models.ThreatIndicatorType, value string) (*models.ThreatIndicator, error)
}

// RedisProvider caches threat-intel indicators in Redis. External feeds
// (out of scope here) populate the cache; the pipeline only reads it,
// plus recording sightings to age confidence.
type RedisProvider struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisProvider creates a redis-backed provider. ttl bounds how long
// a cached indicator stays fresh.
func NewRedisProvider(client *redis.Client, ttl time.Duration) *RedisProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisProvider{client: client, ttl: ttl}
}

func indicatorKey(t models.ThreatIndicatorType, value string) string {
	return fmt.Sprintf("sentinel:intel:%s:%s", t, value)
}

// Lookup fetches an indicator from the cache.
func (p *RedisProvider) Lookup(ctx context.Context, indicatorType models.ThreatIndicatorType, value string) (*models.ThreatIndicator, error) {
	data, err := p.client.Get(ctx, indicatorKey(indicatorType, value)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("intel lookup: %w", err)
	}

	var indicator models.ThreatIndicator
	if err := json.Unmarshal([]byte(data), &indicator); err != nil {
		return nil, fmt.Errorf("unmarshal indicator: %w", err)
	}
	return &indicator, nil
}

// Store writes an indicator into the cache with the provider TTL. Used
// by feed loaders and by tests.
func (p *RedisProvider) Store(ctx context.Context, indicator *models.ThreatIndicator) error {
	data, err := json.Marshal(indicator)
	if err != nil {
		return fmt.Errorf("marshal indicator: %w", err)
	}
	if err := p.client.Set(ctx, indicatorKey(indicator.Type, indicator.Value), data, p.ttl).Err(); err != nil {
		return fmt.Errorf("store indicator: %w", err)
	}
	return nil
}

// Noop is a Provider that knows nothing. Used when no intel cache is
// configured.
type Noop struct{}

// Lookup always reports the indicator as unknown.
func (Noop) Lookup(context.Context, models.ThreatIndicatorType, string) (*models.ThreatIndicator, error) {
	return nil, ErrNotFound
}
