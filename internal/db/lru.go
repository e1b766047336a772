package db

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUStore is a bounded in-process key-value store used when no Redis is
// configured. Entries expire after the ttl given at construction; the per
// call ttl of Set is ignored because expirable.LRU has a single lifetime.
type LRUStore struct {
	cache *expirable.LRU[string, string]
}

// NewLRUStore returns a store holding at most size entries for ttl each.
func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	if size <= 0 {
		size = 1000
	}
	return &LRUStore{cache: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Get returns the value stored at key.
func (s *LRUStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := s.cache.Get(key)
	return v, ok, nil
}

// Set stores value at key.
func (s *LRUStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.cache.Add(key, value)
	return nil
}

// Len returns the number of live entries.
func (s *LRUStore) Len() int {
	return s.cache.Len()
}
