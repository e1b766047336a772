package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/db"
	"github.com/patrickwarner/countryredirect/internal/logic"
	"github.com/patrickwarner/countryredirect/internal/logic/ratelimit"
	"github.com/patrickwarner/countryredirect/internal/middleware"
	"github.com/patrickwarner/countryredirect/internal/models"
	"github.com/patrickwarner/countryredirect/internal/observability"
	"github.com/patrickwarner/countryredirect/internal/redirect"
	"github.com/patrickwarner/countryredirect/internal/session"
)

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger    *zap.Logger
	Redirects *redirect.Service
	Catalogue *models.InMemoryCatalogue
	PG        *db.Postgres
	Metrics   observability.MetricsRegistry
	Config    config.Config
	Limiter   *ratelimit.ClientLimiter
	// Analytics is the redirect log database; nil disables reporting.
	Analytics *sql.DB
	reloadMu  sync.Mutex
}

// NewServer constructs a Server. pg may be nil when the catalogue comes from
// the settings file.
func NewServer(logger *zap.Logger, svc *redirect.Service, catalogue *models.InMemoryCatalogue, pg *db.Postgres, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Server{
		Logger:    logger,
		Redirects: svc,
		Catalogue: catalogue,
		PG:        pg,
		Metrics:   metrics,
		Config:    cfg,
		Limiter:   ratelimit.NewClientLimiter(ratelimit.Config{
			Capacity:   cfg.RateLimitCapacity,
			RefillRate: cfg.RateLimitRefillRate,
			Enabled:    cfg.RateLimitEnabled,
		}, metrics),
	}
}

// Reload refreshes sites and elements from Postgres.
func (s *Server) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.PG == nil {
		return fmt.Errorf("postgres unavailable")
	}

	sites, err := s.PG.LoadSites(ctx)
	if err != nil {
		return fmt.Errorf("load sites: %w", err)
	}
	elements, err := s.PG.LoadElements(ctx)
	if err != nil {
		return fmt.Errorf("load elements: %w", err)
	}

	s.Catalogue.ReloadAll(sites, elements)
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// newRedirectRequest builds the redirect context for a page at pageURL as
// seen by the visitor of r. Cookies are read from r and written to w.
func (s *Server) newRedirectRequest(w http.ResponseWriter, r *http.Request, pageURL string) *models.RedirectRequest {
	ctx := r.Context()
	req := &models.RedirectRequest{
		IPAddress:  s.Redirects.IPAddress(middleware.ClientIP(r)),
		UserAgent:  r.UserAgent(),
		CurrentURL: pageURL,
		Languages:  logic.ParseAcceptLanguage(r.Header.Get("Accept-Language")),
		Query:      r.URL.Query(),
		Session:    session.NewHTTPStore(w, r),
	}

	if u, err := url.Parse(pageURL); err == nil {
		req.CurrentURI = strings.TrimPrefix(u.Path, "/")
	}

	site, err := s.Catalogue.SiteForURL(ctx, pageURL)
	if err != nil {
		return req
	}
	req.CurrentSite = site
	if e, err := s.Catalogue.ElementForURI(ctx, site.ID, site.RelativeURI(req.CurrentURI)); err == nil {
		req.Element = &e
	}
	return req
}

// requestURL reconstructs the absolute URL the visitor asked for.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
