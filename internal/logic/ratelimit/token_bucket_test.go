package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/patrickwarner/countryredirect/internal/observability"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestTokenBucket_Allow(t *testing.T) {
	bucket := NewTokenBucket(5, 1)

	for i := 0; i < 5; i++ {
		assert.True(t, bucket.Allow(), "request %d", i+1)
	}
	assert.False(t, bucket.Allow())

	hits, total := bucket.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(6), total)
}

func TestTokenBucket_Refill(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	bucket := newTokenBucket(2, 10, clock.Now)

	bucket.Allow()
	bucket.Allow()
	assert.False(t, bucket.Allow())

	clock.Advance(200 * time.Millisecond)
	assert.True(t, bucket.Allow())
	assert.True(t, bucket.Allow())
	assert.False(t, bucket.Allow())

	clock.Advance(time.Hour)
	assert.True(t, bucket.Allow())
	assert.True(t, bucket.Allow())
	assert.False(t, bucket.Allow(), "refill is capped at capacity")
}

func TestClientLimiterPerClient(t *testing.T) {
	metrics := observability.NewMockMetricsRegistry()
	l := NewClientLimiter(Config{Capacity: 2, RefillRate: 1, Enabled: true}, metrics)
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	l.now = clock.Now

	assert.True(t, l.Allow("banner", "203.0.113.1"))
	assert.True(t, l.Allow("banner", "203.0.113.1"))
	assert.False(t, l.Allow("banner", "203.0.113.1"))
	assert.True(t, l.Allow("banner", "203.0.113.2"))

	assert.Equal(t, 2, l.Clients())
	assert.Equal(t, 1, metrics.RateLimitHitCount("banner"))
}

func TestClientLimiterDisabled(t *testing.T) {
	l := NewClientLimiter(Config{Capacity: 0, Enabled: false}, nil)
	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("links", "203.0.113.1"))
	}

	var nilLimiter *ClientLimiter
	assert.True(t, nilLimiter.Allow("links", "203.0.113.1"))
}

func TestClientLimiterBoundsClients(t *testing.T) {
	l := NewClientLimiter(Config{Capacity: 1, RefillRate: 1, Enabled: true, MaxClients: 2}, nil)

	l.Allow("country", "a")
	l.Allow("country", "b")
	l.Allow("country", "c")
	assert.Equal(t, 2, l.Clients())
}
