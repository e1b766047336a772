// Package redirect is the entry point hosts call once per request: it runs
// the check chain, applies the side effects of a redirect and exposes the
// helpers templates need (links, banner, country).
package redirect

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/patrickwarner/countryredirect/internal/analytics"
	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/logic"
	"github.com/patrickwarner/countryredirect/internal/logic/checks"
	"github.com/patrickwarner/countryredirect/internal/models"
	"github.com/patrickwarner/countryredirect/internal/observability"
	"github.com/patrickwarner/countryredirect/internal/session"
)

// linkMarker is the override value carried by links from Links.
const linkMarker = "✓"

// Options groups the collaborators of a Service. Sites is required; every
// other field has a usable zero value.
type Options struct {
	Settings config.Settings
	Sites    models.SiteCatalogue
	Elements models.ElementCatalogue
	Geo      logic.CountryLookup
	Detector logic.CrawlerDetector
	Log      analytics.RedirectLog
	Logger   *zap.Logger
	Metrics  observability.MetricsRegistry
}

// Outcome is what the host should do with the request.
type Outcome struct {
	// RedirectTo is the destination, empty when the visitor stays.
	RedirectTo string
	// ShouldSetBannerCookie is true when the visitor arrived from a banner.
	ShouldSetBannerCookie bool
	// HaltedBy names the check that stopped the chain, if any.
	HaltedBy string
}

// Service decides redirects and banners for a set of sites.
type Service struct {
	settings config.Settings
	sites    models.SiteCatalogue
	geo      logic.CountryLookup
	log      analytics.RedirectLog
	logger   *zap.Logger
	metrics  observability.MetricsRegistry
	tracer   trace.Tracer
	now      func() time.Time

	override *logic.OverrideResolver
	resolver *logic.CountryResolver
	builder  *logic.URLBuilder
	banners  *logic.BannerResolver
	pipeline *checks.Pipeline
}

// New wires a Service from opts.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	detector := opts.Detector
	if detector == nil {
		detector = logic.NewUACrawlerDetector()
	}
	log := opts.Log
	if log == nil {
		log = analytics.NoOpLog{}
	}

	override := logic.NewOverrideResolver(opts.Settings, opts.Geo, logger)
	resolver := logic.NewCountryResolver(opts.Settings.CountryMap)
	builder := logic.NewURLBuilder(opts.Settings, opts.Sites, opts.Elements, logger)

	chain := checks.DefaultChecks(checks.Deps{
		Settings: opts.Settings,
		Detector: detector,
		Override: override,
		Resolver: resolver,
		Sites:    opts.Sites,
		Builder:  builder,
	})

	return &Service{
		settings: opts.Settings,
		sites:    opts.Sites,
		geo:      opts.Geo,
		log:      log,
		logger:   logger,
		metrics:  metrics,
		tracer:   observability.Tracer("redirect"),
		now:      time.Now,
		override: override,
		resolver: resolver,
		builder:  builder,
		banners:  logic.NewBannerResolver(opts.Settings, override, resolver, builder, opts.Sites, opts.Geo),
		pipeline: checks.NewPipeline(chain, builder, logger, metrics),
	}
}

// Settings returns the settings the service was built with.
func (s *Service) Settings() config.Settings { return s.settings }

// IPAddress returns the address to geolocate for a client address. The
// configured override IP wins; invalid and loopback addresses become "".
func (s *Service) IPAddress(raw string) string {
	if s.settings.OverrideIP != "" {
		raw = s.settings.OverrideIP
	}
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil || ip.IsLoopback() {
		return ""
	}
	return ip.String()
}

// OnRequest runs the check chain for req. When a redirect results, the
// redirected flash is set and the redirect is logged if logging is enabled.
func (s *Service) OnRequest(ctx context.Context, req *models.RedirectRequest) Outcome {
	ctx, span := s.tracer.Start(ctx, "redirect.OnRequest")
	defer span.End()

	if req.Session == nil {
		req.Session = session.NewMemoryStore()
	}

	var out Outcome
	if s.WasRedirectedFromBanner(req) && s.settings.CookieNameBanner != "" {
		req.Session.SetCookie(s.settings.CookieNameBanner, "1", s.now().Add(logic.CookieLifetime))
		out.ShouldSetBannerCookie = true
	}

	s.pipeline.Run(ctx, req)
	out.HaltedBy = req.HaltedBy
	span.SetAttributes(
		attribute.String("redirect.country", req.CountryCode),
		attribute.String("redirect.halted_by", req.HaltedBy),
	)

	if req.RedirectURL == "" {
		return out
	}
	out.RedirectTo = req.RedirectURL
	span.SetAttributes(attribute.String("redirect.site", req.SiteHandle))

	if s.settings.RedirectedParam != "" {
		req.Session.SetFlash(s.settings.RedirectedParam)
	}
	s.metrics.IncrementRedirects(siteLabel(req.SiteHandle))

	if observability.ShouldSample(observability.GetSamplingRate()) {
		s.logger.Info("redirecting visitor",
			zap.String("country", req.CountryCode),
			zap.String("from_site", req.CurrentSite.Handle),
			zap.String("to", req.RedirectURL))
	}

	if s.settings.EnableLogging {
		ev := analytics.RedirectEvent{
			ID:          uuid.NewString(),
			Timestamp:   s.now(),
			IPAddress:   req.IPAddress,
			CountryCode: req.CountryCode,
			FromSite:    req.CurrentSite.Handle,
			ToSite:      req.SiteHandle,
			FromURI:     req.CurrentURI,
			ToURL:       req.RedirectURL,
			UserAgent:   req.UserAgent,
		}
		if err := s.log.LogRedirect(ctx, ev); err != nil {
			s.metrics.IncrementRedirectLogErrors()
			s.logger.Warn("failed to log redirect", zap.Error(err))
		}
	}
	return out
}

// Links returns one link per site, each carrying the override parameter so
// following it pins the visitor to that site.
func (s *Service) Links(ctx context.Context) []models.Link {
	sites, err := s.sites.AllSites(ctx)
	if err != nil {
		s.logger.Error("failed to list sites", zap.Error(err))
		return nil
	}
	links := make([]models.Link, 0, len(sites))
	for _, site := range sites {
		links = append(links, models.Link{
			SiteName:   site.Name,
			SiteHandle: site.Handle,
			URL:        s.linkURL(site.BaseURL),
		})
	}
	return links
}

func (s *Service) linkURL(baseURL string) string {
	param := s.settings.OverrideLocaleParam
	if param == "" {
		return baseURL
	}
	base := strings.TrimRight(baseURL, "?")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + url.Values{param: {linkMarker}}.Encode()
}

// Banner returns the switch banner for req, or nil.
func (s *Service) Banner(ctx context.Context, req *models.RedirectRequest, currentURL, currentSiteHandle string) *models.Banner {
	ctx, span := s.tracer.Start(ctx, "redirect.Banner")
	defer span.End()

	if req.Session == nil {
		req.Session = session.NewMemoryStore()
	}
	b, ok := s.banners.Resolve(ctx, req, currentURL, currentSiteHandle)
	if !ok {
		return nil
	}
	s.metrics.IncrementBanners(siteLabel(b.SiteHandle))
	return b
}

// CountryCode returns the effective country code of req.
func (s *Service) CountryCode(ctx context.Context, req *models.RedirectRequest) string {
	if req.Session == nil {
		req.Session = session.NewMemoryStore()
	}
	return s.override.ResolveCountryCode(ctx, req)
}

// CountryInfo returns the geolocated country of the request IP.
func (s *Service) CountryInfo(ctx context.Context, req *models.RedirectRequest) (models.CountryRecord, bool) {
	if s.geo == nil {
		return models.CountryRecord{}, false
	}
	return s.geo.CountryRecordForIP(ctx, req.IPAddress)
}

// WasRedirected reports whether the visitor just arrived through a redirect.
func (s *Service) WasRedirected(req *models.RedirectRequest) bool {
	return s.markerSeen(req, s.settings.RedirectedParam)
}

// WasRedirectedFromBanner reports whether the visitor followed a banner.
func (s *Service) WasRedirectedFromBanner(req *models.RedirectRequest) bool {
	return s.markerSeen(req, s.settings.BannerParam)
}

// WasOverridden reports whether the request carries the override parameter.
func (s *Service) WasOverridden(req *models.RedirectRequest) bool {
	return req.Param(s.settings.OverrideLocaleParam) != ""
}

func (s *Service) markerSeen(req *models.RedirectRequest, param string) bool {
	if param == "" {
		return false
	}
	if req.Session != nil && req.Session.HasFlash(param) {
		return true
	}
	return req.Param(param) != ""
}

func siteLabel(target string) string {
	if logic.IsAbsoluteURL(target) {
		return "external"
	}
	return target
}
