package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEO_CACHE_TTL", "")
	t.Setenv("GEO_LOOKUP_TIMEOUT", "")
	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.GeoCacheTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.GeoLookupTimeout)
	assert.Equal(t, "countryRedirect-info", cfg.GeoCacheNamespace)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GEO_CACHE_TTL", "1h")
	t.Setenv("GEO_CACHE_SIZE", "42")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACING_SAMPLE_RATE", "0.25")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RATE_LIMIT_ENABLED", "1")
	t.Setenv("RATE_LIMIT_CAPACITY", "5")
	cfg := Load()

	assert.Equal(t, time.Hour, cfg.GeoCacheTTL)
	assert.Equal(t, 42, cfg.GeoCacheSize)
	assert.True(t, cfg.TracingEnabled)
	assert.InDelta(t, 0.25, cfg.TracingSampleRate, 1e-9)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, 5, cfg.RateLimitCapacity)
	assert.Equal(t, 10, cfg.RateLimitRefillRate)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("GEO_CACHE_SIZE", "lots")
	t.Setenv("GEO_LOOKUP_TIMEOUT", "soon")
	cfg := Load()

	assert.Equal(t, 10000, cfg.GeoCacheSize)
	assert.Equal(t, 250*time.Millisecond, cfg.GeoLookupTimeout)
}
