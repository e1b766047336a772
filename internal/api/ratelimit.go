package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/patrickwarner/countryredirect/internal/middleware"
)

// RateLimit rejects clients that exhausted their token bucket with 429.
func (s *Server) RateLimit(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := middleware.ClientIP(r)
		if !s.Limiter.Allow(endpoint, client) {
			middleware.LoggerFromRequest(r, s.Logger).Debug("rate limited",
				zap.String("endpoint", endpoint),
				zap.String("client", client))
			s.Metrics.IncrementRequests(endpoint, r.Method, "429")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
