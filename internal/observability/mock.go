package observability

import (
	"sync"
	"time"
)

// MockMetricsRegistry counts calls so tests can assert on recorded metrics.
type MockMetricsRegistry struct {
	mu         sync.Mutex
	Redirects  map[string]int
	Halts      map[string]int
	Banners    map[string]int
	GeoLookups map[string]int
	RateLimits map[string]int
	LogErrors  int
}

// NewMockMetricsRegistry returns an empty mock registry.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{
		Redirects:  make(map[string]int),
		Halts:      make(map[string]int),
		Banners:    make(map[string]int),
		GeoLookups: make(map[string]int),
		RateLimits: make(map[string]int),
	}
}

func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (m *MockMetricsRegistry) RecordGeoLookupLatency(duration time.Duration)                        {}

func (m *MockMetricsRegistry) IncrementRedirects(site string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Redirects[site]++
}

func (m *MockMetricsRegistry) IncrementCheckHalts(check string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Halts[check]++
}

func (m *MockMetricsRegistry) IncrementBanners(site string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Banners[site]++
}

func (m *MockMetricsRegistry) IncrementGeoLookups(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GeoLookups[outcome]++
}

func (m *MockMetricsRegistry) IncrementRedirectLogErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LogErrors++
}

// GeoLookupCount returns the number of lookups recorded with outcome.
func (m *MockMetricsRegistry) GeoLookupCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GeoLookups[outcome]
}

// HaltCount returns the number of halts recorded for check.
func (m *MockMetricsRegistry) HaltCount(check string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Halts[check]
}

func (m *MockMetricsRegistry) IncrementRateLimitHits(endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RateLimits[endpoint]++
}

// RateLimitHitCount returns the number of rejections recorded for endpoint.
func (m *MockMetricsRegistry) RateLimitHitCount(endpoint string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RateLimits[endpoint]
}
