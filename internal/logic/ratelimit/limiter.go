package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/patrickwarner/countryredirect/internal/observability"
)

// Config holds the configuration for rate limiting.
type Config struct {
	Capacity   int  // burst allowance per client
	RefillRate int  // tokens added per second
	Enabled    bool // a disabled limiter allows everything
	// MaxClients bounds the number of tracked clients; the least recently
	// seen client loses its bucket first.
	MaxClients int
	// BucketTTL is how long a bucket lives; a client seen again afterwards
	// starts with a full bucket.
	BucketTTL time.Duration
}

// ClientLimiter keeps one token bucket per client key, usually the visitor
// IP. Buckets live in an expiring LRU so idle clients do not accumulate.
type ClientLimiter struct {
	mu      sync.Mutex
	buckets *expirable.LRU[string, *TokenBucket]
	config  Config
	metrics observability.MetricsRegistry
	now     func() time.Time
}

// NewClientLimiter returns a limiter for config.
func NewClientLimiter(config Config, metrics observability.MetricsRegistry) *ClientLimiter {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	if config.MaxClients <= 0 {
		config.MaxClients = 10000
	}
	if config.BucketTTL <= 0 {
		config.BucketTTL = 10 * time.Minute
	}
	return &ClientLimiter{
		buckets: expirable.NewLRU[string, *TokenBucket](config.MaxClients, nil, config.BucketTTL),
		config:  config,
		metrics: metrics,
		now:     time.Now,
	}
}

// Allow reports whether a request from client to endpoint may proceed.
func (l *ClientLimiter) Allow(endpoint, client string) bool {
	if l == nil || !l.config.Enabled {
		return true
	}

	l.mu.Lock()
	bucket, ok := l.buckets.Get(client)
	if !ok {
		bucket = newTokenBucket(l.config.Capacity, l.config.RefillRate, l.now)
		l.buckets.Add(client, bucket)
	}
	l.mu.Unlock()

	if !bucket.Allow() {
		l.metrics.IncrementRateLimitHits(endpoint)
		return false
	}
	return true
}

// Clients returns the number of tracked clients.
func (l *ClientLimiter) Clients() int {
	return l.buckets.Len()
}
