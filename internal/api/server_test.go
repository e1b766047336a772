package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/logic/ratelimit"
	"github.com/patrickwarner/countryredirect/internal/models"
	"github.com/patrickwarner/countryredirect/internal/observability"
	"github.com/patrickwarner/countryredirect/internal/redirect"
)

const (
	safariUA   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"
	googlebot  = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	frenchIP   = "203.0.113.33"
	canadianIP = "198.51.100.20"
	usIP       = "192.0.2.44"
)

type fakeGeo struct {
	records map[string]models.CountryRecord
}

func (g fakeGeo) CountryCodeForIP(ctx context.Context, ip string) string {
	if r, ok := g.records[ip]; ok {
		return r.IsoCode
	}
	return models.WildcardCountry
}

func (g fakeGeo) CountryRecordForIP(ctx context.Context, ip string) (models.CountryRecord, bool) {
	r, ok := g.records[ip]
	return r, ok
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	sites := []models.Site{
		{ID: 1, Handle: "en-site", Name: "US", BaseURL: "https://example.com/", Language: "en-US", Primary: true},
		{ID: 2, Handle: "intl-site", Name: "International", BaseURL: "https://example.com/intl/", Language: "en"},
		{ID: 3, Handle: "fr-site", Name: "France", BaseURL: "https://example.fr/", Language: "fr-FR"},
	}
	elements := []models.Element{
		{ID: 7, Type: "entry", SiteID: 1, URI: "about", URL: "https://example.com/about"},
		{ID: 7, Type: "entry", SiteID: 2, URI: "about", URL: "https://example.com/intl/about"},
		{ID: 7, Type: "entry", SiteID: 3, URI: "a-propos", URL: "https://example.fr/a-propos"},
	}
	cat := models.NewInMemoryCatalogue(sites, elements)

	settings := config.DefaultSettings()
	settings.CountryMap = models.NewCountryMap(
		models.CountryMapEntry{Country: "us", Target: models.SiteTarget("en-site")},
		models.CountryMapEntry{Country: "fr", Target: models.SiteTarget("fr-site")},
		models.CountryMapEntry{Country: "*", Target: models.SiteTarget("intl-site")},
	)
	settings.IgnoredSegments = []string{"admin"}
	settings.Banners = map[string]string{"ca": "Visit the international site?"}

	logger := zaptest.NewLogger(t)
	metrics := observability.NewMockMetricsRegistry()
	svc := redirect.New(redirect.Options{
		Settings: settings,
		Sites:    cat,
		Elements: cat,
		Geo: fakeGeo{records: map[string]models.CountryRecord{
			frenchIP:   {IsoCode: "FR", Name: "France"},
			canadianIP: {IsoCode: "CA", Name: "Canada"},
			usIP:       {IsoCode: "US", Name: "United States"},
		}},
		Logger:  logger,
		Metrics: metrics,
	})
	return NewServer(logger, svc, cat, nil, metrics, config.Config{})
}

func doRequest(t *testing.T, s *Server, method, target, ip string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("User-Agent", safariUA)
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type pageResponse struct {
	Site          string          `json:"site"`
	URI           string          `json:"uri"`
	Element       *models.Element `json:"element"`
	Country       string          `json:"country"`
	HaltedBy      string          `json:"halted_by"`
	WasRedirected bool            `json:"was_redirected"`
	Banner        *models.Banner  `json:"banner"`
}

func decodePage(t *testing.T, rr *httptest.ResponseRecorder) pageResponse {
	t.Helper()
	var resp pageResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)
	rr := doRequest(t, s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestPageRedirectsVisitor(t *testing.T) {
	s := newTestServer(t)
	rr := doRequest(t, s, http.MethodGet, "http://example.com/blog", frenchIP)

	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://example.fr/?redirected=%E2%9C%93", rr.Header().Get("Location"))

	c := findCookie(rr, "countryRedirect")
	require.NotNil(t, c)
	assert.Equal(t, "FR", c.Value)
	assert.NotNil(t, findCookie(rr, "flash_redirected"))
}

func TestPageRedirectKeepsContent(t *testing.T) {
	s := newTestServer(t)
	rr := doRequest(t, s, http.MethodGet, "http://example.com/about", frenchIP)

	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://example.fr/a-propos?redirected=%E2%9C%93", rr.Header().Get("Location"))
}

func TestPagePassesThrough(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		target   string
		ip       string
		ua       string
		haltedBy string
		site     string
	}{
		{"home site", http.MethodGet, "http://example.com/blog", usIP, safariUA, "site", "en-site"},
		{"ignored segment", http.MethodGet, "http://example.com/admin/login", frenchIP, safariUA, "ignored_segment", "en-site"},
		{"crawler", http.MethodGet, "http://example.com/blog", frenchIP, googlebot, "bot", "en-site"},
		{"sub path site", http.MethodGet, "http://example.com/intl/news", canadianIP, safariUA, "site", "intl-site"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("User-Agent", tt.ua)
			req.Header.Set("X-Forwarded-For", tt.ip)
			rr := httptest.NewRecorder()
			s.Router().ServeHTTP(rr, req)

			require.Equal(t, http.StatusOK, rr.Code)
			resp := decodePage(t, rr)
			assert.Equal(t, tt.haltedBy, resp.HaltedBy)
			assert.Equal(t, tt.site, resp.Site)
		})
	}
}

func TestPageSkipsNonGet(t *testing.T) {
	s := newTestServer(t)
	rr := doRequest(t, s, http.MethodPost, "http://example.com/blog", frenchIP)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodePage(t, rr)
	assert.Empty(t, resp.HaltedBy)
	assert.Empty(t, resp.Country)
	assert.Empty(t, rr.Header().Get("Location"))
}

func TestPageReportsElementAndRedirectFlash(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "http://example.com/intl/about", nil)
	req.Header.Set("User-Agent", safariUA)
	req.Header.Set("X-Forwarded-For", canadianIP)
	req.AddCookie(&http.Cookie{Name: "flash_redirected", Value: "1"})
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodePage(t, rr)
	require.NotNil(t, resp.Element)
	assert.Equal(t, 2, resp.Element.SiteID)
	assert.True(t, resp.WasRedirected)
	assert.Nil(t, resp.Banner, "already on the site the banner would offer")
}

func TestLinksHandler(t *testing.T) {
	s := newTestServer(t)
	rr := doRequest(t, s, http.MethodGet, "/api/links", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var links []models.Link
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&links))
	require.Len(t, links, 3)
	assert.Equal(t, "fr-site", links[2].SiteHandle)
	assert.Equal(t, "https://example.fr/?selected-locale=%E2%9C%93", links[2].URL)
}

func TestBannerHandler(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		s := newTestServer(t)
		rr := doRequest(t, s, http.MethodGet, "/api/banner", canadianIP)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("banner offered", func(t *testing.T) {
		s := newTestServer(t)
		rr := doRequest(t, s, http.MethodGet, "/api/banner?url=https%3A%2F%2Fexample.com%2Fabout", canadianIP)

		require.Equal(t, http.StatusOK, rr.Code)
		var b models.Banner
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&b))
		assert.Equal(t, "Visit the international site?", b.Text)
		assert.Equal(t, "https://example.com/intl/about?redirected=✓&fromBanner=✓", b.URL)
		assert.Equal(t, "Canada", b.CountryName)
		assert.Equal(t, "International", b.SiteName)
	})

	t.Run("referer", func(t *testing.T) {
		s := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/api/banner", nil)
		req.Header.Set("Referer", "https://example.com/blog")
		req.Header.Set("X-Forwarded-For", canadianIP)
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("no banner", func(t *testing.T) {
		s := newTestServer(t)
		rr := doRequest(t, s, http.MethodGet, "/api/banner?url=https%3A%2F%2Fexample.com%2Fblog", frenchIP)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("dismissed", func(t *testing.T) {
		s := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/api/banner?url=https%3A%2F%2Fexample.com%2Fblog", nil)
		req.Header.Set("X-Forwarded-For", canadianIP)
		req.AddCookie(&http.Cookie{Name: "countryRedirectBanner", Value: "1"})
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestCountryHandler(t *testing.T) {
	s := newTestServer(t)
	rr := doRequest(t, s, http.MethodGet, "http://example.com/api/country", canadianIP)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		CountryCode   string                `json:"country_code"`
		Country       *models.CountryRecord `json:"country"`
		WasOverridden bool                  `json:"was_overridden"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "CA", resp.CountryCode)
	require.NotNil(t, resp.Country)
	assert.Equal(t, "Canada", resp.Country.Name)
	assert.False(t, resp.WasOverridden)
}

func TestCountryHandlerCookieWins(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/country", nil)
	req.Header.Set("X-Forwarded-For", canadianIP)
	req.AddCookie(&http.Cookie{Name: "countryRedirect", Value: "fr"})
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	var resp struct {
		CountryCode string `json:"country_code"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "fr", resp.CountryCode)
}

func TestReloadWithoutPostgres(t *testing.T) {
	s := newTestServer(t)
	rr := doRequest(t, s, http.MethodPost, "/reload", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRequestURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/blog?page=2", nil)
	assert.Equal(t, "http://example.com/blog?page=2", requestURL(req))

	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://example.com/blog?page=2", requestURL(req))
}

func TestAPIRateLimit(t *testing.T) {
	s := newTestServer(t)
	s.Limiter = ratelimit.NewClientLimiter(ratelimit.Config{Capacity: 1, RefillRate: 1, Enabled: true}, s.Metrics)

	rr := doRequest(t, s, http.MethodGet, "/api/links", frenchIP)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = doRequest(t, s, http.MethodGet, "/api/links", frenchIP)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	rr = doRequest(t, s, http.MethodGet, "/api/links", canadianIP)
	assert.Equal(t, http.StatusOK, rr.Code)

	// pages are never limited
	rr = doRequest(t, s, http.MethodGet, "http://example.com/blog", frenchIP)
	assert.Equal(t, http.StatusFound, rr.Code)
}

func TestReportWithoutAnalytics(t *testing.T) {
	s := newTestServer(t)
	rr := doRequest(t, s, http.MethodGet, "/report?days=30", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestIntParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/report?days=14&limit=x", nil)

	days, err := intParam(req, "days", 7)
	require.NoError(t, err)
	assert.Equal(t, 14, days)

	_, err = intParam(req, "limit", 10)
	assert.Error(t, err)

	n, err := intParam(req, "missing", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
