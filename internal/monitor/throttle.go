package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle enforces the hourly cap on automated responses. Allow
// reserves one slot atomically; callers that get false must not
// execute.
type Throttle interface {
	// Allow reserves a response slot for the current hour. It returns
	// false when the cap is already spent.
	Allow(ctx context.Context, limit int) (bool, error)
}

// RedisThrottle counts responses in a per-hour Redis key so the cap
// holds across restarts and replicas.
type RedisThrottle struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisThrottle builds a throttle over the given client.
func NewRedisThrottle(client *redis.Client) *RedisThrottle {
	return &RedisThrottle{
		client: client,
		prefix: "sentinel:response:hourly",
		now:    time.Now,
	}
}

// SetClock overrides the throttle clock for tests.
func (t *RedisThrottle) SetClock(now func() time.Time) { t.now = now }

func (t *RedisThrottle) Allow(ctx context.Context, limit int) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	key := fmt.Sprintf("%s:%s", t.prefix, t.now().UTC().Format("2006010215"))

	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("increment response counter: %w", err)
	}
	if count == 1 {
		// Two hours covers clock skew between replicas.
		if err := t.client.Expire(ctx, key, 2*time.Hour).Err(); err != nil {
			return false, fmt.Errorf("set counter expiry: %w", err)
		}
	}
	if count > int64(limit) {
		return false, nil
	}
	return true, nil
}

// MemoryThrottle is the single-process fallback used when Redis is
// disabled.
type MemoryThrottle struct {
	mu    sync.Mutex
	hour  string
	count int
	now   func() time.Time
}

// NewMemoryThrottle builds an in-memory throttle.
func NewMemoryThrottle() *MemoryThrottle {
	return &MemoryThrottle{now: time.Now}
}

// SetClock overrides the throttle clock for tests.
func (t *MemoryThrottle) SetClock(now func() time.Time) { t.now = now }

func (t *MemoryThrottle) Allow(_ context.Context, limit int) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	hour := t.now().UTC().Format("2006010215")

	t.mu.Lock()
	defer t.mu.Unlock()
	if hour != t.hour {
		t.hour = hour
		t.count = 0
	}
	if t.count >= limit {
		return false, nil
	}
	t.count++
	return true, nil
}
