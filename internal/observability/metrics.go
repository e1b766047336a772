package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "countryredirect_requests_total",
			Help: "Total HTTP requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "countryredirect_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// redirects issued, labelled by target site handle (or "url")
	RedirectCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "countryredirect_redirects_total",
			Help: "Total redirects issued",
		},
		[]string{"site"},
	)

	// requests stopped by each check
	CheckHaltCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "countryredirect_check_halts_total",
			Help: "Total redirect decisions halted, by check",
		},
		[]string{"check"},
	)

	// geo lookups labelled by outcome (hit, miss, not_found, timeout, error, invalid)
	GeoLookupCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "countryredirect_geo_lookups_total",
			Help: "Total IP geolocation lookups",
		},
		[]string{"outcome"},
	)

	// latency of geo database calls, cache hits excluded
	GeoLookupLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "countryredirect_geo_lookup_duration_seconds",
			Help:    "Duration of geo database lookups",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .25, .5},
		},
	)

	// banners offered, labelled by site handle
	BannerCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "countryredirect_banners_total",
			Help: "Total banners offered",
		},
		[]string{"site"},
	)

	// number of errors writing the redirect log
	RedirectLogErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "countryredirect_redirect_log_errors_total",
			Help: "Total redirect log persistence errors",
		},
	)

	// API requests rejected by the per-client rate limiter
	RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "countryredirect_rate_limit_hits_total",
			Help: "Total API requests rejected by rate limiting",
		},
		[]string{"endpoint"},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		RedirectCount,
		CheckHaltCount,
		GeoLookupCount,
		GeoLookupLatency,
		BannerCount,
		RedirectLogErrors,
		RateLimitHits,
	)
}
