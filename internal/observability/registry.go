package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// so components never touch the global Prometheus collectors directly.
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Decision metrics
	IncrementRedirects(site string)
	IncrementCheckHalts(check string)
	IncrementBanners(site string)

	// Geo lookup metrics
	IncrementGeoLookups(outcome string)
	RecordGeoLookupLatency(duration time.Duration)

	// Redirect log metrics
	IncrementRedirectLogErrors()

	// Rate limiting metrics
	IncrementRateLimitHits(endpoint string)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

// HTTP Request metrics
func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Decision metrics
func (r *PrometheusRegistry) IncrementRedirects(site string) {
	RedirectCount.WithLabelValues(site).Inc()
}

func (r *PrometheusRegistry) IncrementCheckHalts(check string) {
	CheckHaltCount.WithLabelValues(check).Inc()
}

func (r *PrometheusRegistry) IncrementBanners(site string) {
	BannerCount.WithLabelValues(site).Inc()
}

// Geo lookup metrics
func (r *PrometheusRegistry) IncrementGeoLookups(outcome string) {
	GeoLookupCount.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) RecordGeoLookupLatency(duration time.Duration) {
	GeoLookupLatency.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementRedirectLogErrors() {
	RedirectLogErrors.Inc()
}

// Rate limiting metrics
func (r *PrometheusRegistry) IncrementRateLimitHits(endpoint string) {
	RateLimitHits.WithLabelValues(endpoint).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementRedirects(site string)                                       {}
func (r *NoOpRegistry) IncrementCheckHalts(check string)                                     {}
func (r *NoOpRegistry) IncrementBanners(site string)                                         {}
func (r *NoOpRegistry) IncrementGeoLookups(outcome string)                                   {}
func (r *NoOpRegistry) RecordGeoLookupLatency(duration time.Duration)                        {}
func (r *NoOpRegistry) IncrementRedirectLogErrors()                                          {}
func (r *NoOpRegistry) IncrementRateLimitHits(endpoint string)                               {}
