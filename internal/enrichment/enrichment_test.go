package enrichment

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayops-systems/sentinel/internal/models"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestRedisProvider_LookupMiss(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	p := NewRedisProvider(client, time.Hour)
	_, err := p.Lookup(context.Background(), models.IndicatorIP, "198.51.100.7")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisProvider_StoreAndLookup(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	p := NewRedisProvider(client, time.Hour)
	ctx := context.Background()

	indicator := &models.ThreatIndicator{
		Type:       models.IndicatorIP,
		Value:      "198.51.100.7",
		Confidence: 85,
		Source:     "feed:spamhaus",
	}
	require.NoError(t, p.Store(ctx, indicator))

	got, err := p.Lookup(ctx, models.IndicatorIP, "198.51.100.7")
	require.NoError(t, err)
	assert.Equal(t, indicator.Confidence, got.Confidence)
	assert.Equal(t, indicator.Source, got.Source)

	// TTL expiry evicts the indicator.
	mr.FastForward(2 * time.Hour)
	_, err = p.Lookup(ctx, models.IndicatorIP, "198.51.100.7")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNoopProvider(t *testing.T) {
	_, err := Noop{}.Lookup(context.Background(), models.IndicatorActor, "42")
	assert.ErrorIs(t, err, ErrNotFound)
}
