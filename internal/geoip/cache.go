package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/countryredirect/internal/models"
	"github.com/patrickwarner/countryredirect/internal/observability"
)

// Store is the key-value backend of Cache. Values are opaque strings.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CacheOptions configures a Cache.
type CacheOptions struct {
	// Namespace prefixes every key as "<namespace>-<ip>".
	Namespace string
	// TTL bounds how long a lookup result is reused. Zero keeps entries
	// until the store evicts them.
	TTL time.Duration
	// Timeout bounds a single database lookup. Zero disables the bound.
	Timeout time.Duration
}

// Cache memoizes IP to country lookups. Lookup failures of any kind degrade
// to "unknown" and are never returned to callers.
type Cache struct {
	db      Database
	store   Store
	opts    CacheOptions
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewCache wraps db with store. store may be nil, in which case every call
// goes to the database.
func NewCache(db Database, store Store, opts CacheOptions, logger *zap.Logger, metrics observability.MetricsRegistry) *Cache {
	if opts.Namespace == "" {
		opts.Namespace = "countryRedirect-info"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Cache{db: db, store: store, opts: opts, logger: logger, metrics: metrics}
}

// IsLocal reports whether ip is empty or a loopback literal. Such addresses
// are never geolocated.
func IsLocal(ip string) bool {
	return ip == "" || ip == "::1" || ip == "127.0.0.1"
}

// CountryCodeForIP returns the ISO country code for ip, or "*" when it is
// unknown.
func (c *Cache) CountryCodeForIP(ctx context.Context, ip string) string {
	rec, ok := c.CountryRecordForIP(ctx, ip)
	if !ok || rec.IsoCode == "" {
		return models.WildcardCountry
	}
	return rec.IsoCode
}

// CountryRecordForIP returns the country record for ip. The second result is
// false when ip is local, invalid, or could not be resolved.
func (c *Cache) CountryRecordForIP(ctx context.Context, ip string) (models.CountryRecord, bool) {
	if IsLocal(ip) {
		return models.CountryRecord{}, false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		c.metrics.IncrementGeoLookups("invalid")
		return models.CountryRecord{}, false
	}

	key := c.opts.Namespace + "-" + ip
	if rec, ok := c.cached(ctx, key); ok {
		c.metrics.IncrementGeoLookups("hit")
		return rec, true
	}

	start := time.Now()
	rec, err := c.lookup(ctx, parsed)
	c.metrics.RecordGeoLookupLatency(time.Since(start))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.metrics.IncrementGeoLookups("not_found")
		case errors.Is(err, context.DeadlineExceeded):
			c.metrics.IncrementGeoLookups("timeout")
			c.logger.Warn("geo lookup timed out", zap.String("ip", ip), zap.Duration("timeout", c.opts.Timeout))
		default:
			c.metrics.IncrementGeoLookups("error")
			c.logger.Warn("geo lookup failed", zap.String("ip", ip), zap.Error(err))
		}
		return models.CountryRecord{}, false
	}
	c.metrics.IncrementGeoLookups("miss")

	if c.store != nil {
		payload, err := json.Marshal(rec)
		if err == nil {
			err = c.store.Set(ctx, key, string(payload), c.opts.TTL)
		}
		if err != nil {
			c.logger.Warn("geo cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return rec, true
}

func (c *Cache) cached(ctx context.Context, key string) (models.CountryRecord, bool) {
	if c.store == nil {
		return models.CountryRecord{}, false
	}
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("geo cache read failed", zap.String("key", key), zap.Error(err))
		return models.CountryRecord{}, false
	}
	if !ok {
		return models.CountryRecord{}, false
	}
	var rec models.CountryRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.IsoCode == "" {
		return models.CountryRecord{}, false
	}
	return rec, true
}

// lookup calls the database, giving up after the configured timeout. The
// database reader is not context aware, so an abandoned call finishes in the
// background and its result is dropped.
func (c *Cache) lookup(ctx context.Context, ip net.IP) (models.CountryRecord, error) {
	if c.db == nil {
		return models.CountryRecord{}, ErrNotFound
	}
	if c.opts.Timeout <= 0 {
		return c.db.Lookup(ip)
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	type result struct {
		rec models.CountryRecord
		err error
	}
	ch := make(chan result, 1)
	go func() {
		rec, err := c.db.Lookup(ip)
		ch <- result{rec: rec, err: err}
	}()
	select {
	case r := <-ch:
		return r.rec, r.err
	case <-ctx.Done():
		return models.CountryRecord{}, ctx.Err()
	}
}
