package main

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/db"
	"github.com/patrickwarner/countryredirect/internal/geoip"
	"github.com/patrickwarner/countryredirect/internal/logic"
	"github.com/patrickwarner/countryredirect/internal/models"
	"github.com/patrickwarner/countryredirect/internal/redirect"
	"github.com/patrickwarner/countryredirect/internal/session"
)

type ResolveRedirectInput struct {
	URL            string            `json:"url" jsonschema:"absolute URL of the page the visitor requested"`
	IP             string            `json:"ip,omitempty" jsonschema:"visitor IP address"`
	UserAgent      string            `json:"user_agent,omitempty" jsonschema:"visitor User-Agent header"`
	AcceptLanguage string            `json:"accept_language,omitempty" jsonschema:"visitor Accept-Language header"`
	Cookies        map[string]string `json:"cookies,omitempty" jsonschema:"cookies sent by the visitor"`
}

type ResolveRedirectOutput struct {
	RedirectTo  string         `json:"redirect_to,omitempty"`
	HaltedBy    string         `json:"halted_by,omitempty"`
	CountryCode string         `json:"country_code,omitempty"`
	SiteHandle  string         `json:"site_handle,omitempty"`
	Executed    []string       `json:"executed"`
	Banner      *models.Banner `json:"banner,omitempty"`
	SetCookies  []string       `json:"set_cookies,omitempty"`
}

type ListLinksInput struct{}

type ListLinksOutput struct {
	Links []models.Link `json:"links"`
}

// RedirectTools exposes the redirect decision to MCP clients for debugging
// country maps without sending real traffic.
type RedirectTools struct {
	svc      *redirect.Service
	sites    models.SiteCatalogue
	elements models.ElementCatalogue
	logger   *zap.Logger
}

// ResolveRedirect runs the full decision for a simulated visitor.
func (t *RedirectTools) ResolveRedirect(ctx context.Context, req *mcp.CallToolRequest, input ResolveRedirectInput) (*mcp.CallToolResult, ResolveRedirectOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	page, err := url.Parse(input.URL)
	if err != nil || !logic.IsAbsoluteURL(input.URL) {
		return nil, ResolveRedirectOutput{}, fmt.Errorf("url must be absolute, got %q", input.URL)
	}

	store := session.NewMemoryStore()
	for name, value := range input.Cookies {
		store.SetCookie(name, value, time.Now().Add(logic.CookieLifetime))
	}

	rr := &models.RedirectRequest{
		IPAddress:  t.svc.IPAddress(input.IP),
		UserAgent:  input.UserAgent,
		CurrentURI: strings.TrimPrefix(page.Path, "/"),
		CurrentURL: input.URL,
		Languages:  logic.ParseAcceptLanguage(input.AcceptLanguage),
		Query:      page.Query(),
		Session:    store,
	}
	if site, err := t.sites.SiteForURL(ctx, input.URL); err == nil {
		rr.CurrentSite = site
		if t.elements != nil {
			if e, err := t.elements.ElementForURI(ctx, site.ID, site.RelativeURI(rr.CurrentURI)); err == nil {
				rr.Element = &e
			}
		}
	}

	out := t.svc.OnRequest(ctx, rr)
	result := ResolveRedirectOutput{
		RedirectTo:  out.RedirectTo,
		HaltedBy:    out.HaltedBy,
		CountryCode: rr.CountryCode,
		SiteHandle:  rr.SiteHandle,
		Executed:    append([]string(nil), rr.Executed...),
	}
	if out.RedirectTo == "" {
		result.Banner = t.svc.Banner(ctx, rr, "", "")
	}
	settings := t.svc.Settings()
	for _, name := range []string{settings.CookieName, settings.CookieNameBanner} {
		if v, ok := store.Cookie(name); ok && name != "" {
			result.SetCookies = append(result.SetCookies, name+"="+v)
		}
	}

	t.logger.Info("resolved redirect",
		zap.String("url", input.URL),
		zap.String("country", rr.CountryCode),
		zap.String("redirect_to", out.RedirectTo),
		zap.String("halted_by", out.HaltedBy))
	return nil, result, nil
}

// ListLinks returns the site switcher links.
func (t *RedirectTools) ListLinks(ctx context.Context, req *mcp.CallToolRequest, input ListLinksInput) (*mcp.CallToolResult, ListLinksOutput, error) {
	links := t.svc.Links(ctx)
	if links == nil {
		links = []models.Link{}
	}
	return nil, ListLinksOutput{Links: links}, nil
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.OutputPaths = []string{"stderr"}      // stdout carries the MCP protocol
	cfg.ErrorOutputPaths = []string{"stderr"} // Force stderr for errors

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.NameKey = "logger"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named("countryredirect-mcp").With(zap.String("service", "countryredirect-mcp")), nil
}

func newServer(tools *RedirectTools) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "countryredirect",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_redirect",
		Description: "Run the country redirect decision for a simulated visitor and report the outcome",
	}, tools.ResolveRedirect)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_links",
		Description: "List every site with the link that pins a visitor to it",
	}, tools.ListLinks)

	return server
}

func main() {
	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Starting country redirect MCP server")

	cfg := config.Load()
	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		logger.Fatal("Failed to load settings", zap.Error(err))
	}

	ctx := context.Background()

	// Postgres is queried directly here; a diagnostic session does not need
	// the server's reloaded snapshot.
	var (
		sites    models.SiteCatalogue
		elements models.ElementCatalogue
	)
	if cfg.PostgresDSN != "" {
		pg, err := db.InitPostgres(ctx, cfg.PostgresDSN, 2, 1, 30*time.Minute, time.Minute)
		if err != nil {
			logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer pg.Close()
		sites, elements = pg, pg
	} else {
		catalogue := models.NewInMemoryCatalogue(settings.Sites, settings.Elements)
		sites, elements = catalogue, catalogue
	}

	var geoDB geoip.Database
	if geoSvc, err := geoip.Init(cfg.GeoIPDB); err != nil {
		logger.Warn("geoip database unavailable", zap.Error(err))
	} else {
		defer func() { _ = geoSvc.Close() }()
		geoDB = geoSvc
	}
	geoCache := geoip.NewCache(geoDB, db.NewLRUStore(cfg.GeoCacheSize, cfg.GeoCacheTTL), geoip.CacheOptions{
		Namespace: cfg.GeoCacheNamespace,
		TTL:       cfg.GeoCacheTTL,
		Timeout:   cfg.GeoLookupTimeout,
	}, logger, nil)

	// Simulated visitors are never logged as real redirects.
	settings.EnableLogging = false
	tools := &RedirectTools{
		svc: redirect.New(redirect.Options{
			Settings: settings,
			Sites:    sites,
			Elements: elements,
			Geo:      geoCache,
			Logger:   logger,
		}),
		sites:    sites,
		elements: elements,
		logger:   logger,
	}

	var logBuffer bytes.Buffer
	loggingTransport := &mcp.LoggingTransport{
		Transport: &mcp.StdioTransport{},
		Writer:    &logBuffer,
	}

	logger.Info("MCP Server running via stdio")
	if err := newServer(tools).Run(ctx, loggingTransport); err != nil {
		logger.Fatal("Server error", zap.Error(err), zap.String("mcp_logs", logBuffer.String()))
	}
}
