package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patrickwarner/countryredirect/internal/middleware"
)

// Router registers every endpoint. Paths outside /api, /health, /reload,
// /report and /metrics are pages and go through the redirect middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(middleware.WithTraceLogger(s.Logger)))

	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	r.HandleFunc("/reload", s.ReloadHandler).Methods("POST")
	r.HandleFunc("/report", s.ReportHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/links", s.RateLimit("links", http.HandlerFunc(s.LinksHandler))).Methods("GET")
	api.Handle("/banner", s.RateLimit("banner", http.HandlerFunc(s.BannerHandler))).Methods("GET")
	api.Handle("/country", s.RateLimit("country", http.HandlerFunc(s.CountryHandler))).Methods("GET")

	r.PathPrefix("/").Handler(s.RedirectMiddleware(http.HandlerFunc(s.PageHandler)))
	return r
}
