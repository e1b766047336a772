package redirect

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/patrickwarner/countryredirect/internal/analytics"
	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/models"
	"github.com/patrickwarner/countryredirect/internal/observability"
	"github.com/patrickwarner/countryredirect/internal/session"
)

const safariUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"

type fakeGeo struct {
	records map[string]models.CountryRecord
	calls   int
}

func (g *fakeGeo) CountryCodeForIP(ctx context.Context, ip string) string {
	g.calls++
	if r, ok := g.records[ip]; ok {
		return r.IsoCode
	}
	return models.WildcardCountry
}

func (g *fakeGeo) CountryRecordForIP(ctx context.Context, ip string) (models.CountryRecord, bool) {
	r, ok := g.records[ip]
	return r, ok
}

const (
	frenchIP   = "203.0.113.33"
	canadianIP = "198.51.100.20"
)

func testSites() []models.Site {
	return []models.Site{
		{ID: 1, Handle: "en-site", Name: "US", BaseURL: "https://example.com/", Language: "en-US", Primary: true},
		{ID: 2, Handle: "intl-site", Name: "International", BaseURL: "https://example.com/intl/", Language: "en"},
		{ID: 3, Handle: "fr-site", Name: "France", BaseURL: "https://example.fr/", Language: "fr-FR"},
	}
}

func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.CountryMap = models.NewCountryMap(
		models.CountryMapEntry{Country: "us", Target: models.SiteTarget("en-site")},
		models.CountryMapEntry{Country: "fr", Target: models.SiteTarget("fr-site")},
		models.CountryMapEntry{Country: "*", Target: models.SiteTarget("intl-site")},
	)
	s.Banners = map[string]string{"ca": "Switch to the international site?"}
	return s
}

type fixture struct {
	svc     *Service
	geo     *fakeGeo
	metrics *observability.MockMetricsRegistry
	log     *analytics.MockRedirectLog
}

func newFixture(t *testing.T, s config.Settings) fixture {
	t.Helper()
	cat := models.NewInMemoryCatalogue(testSites(), nil)
	geo := &fakeGeo{records: map[string]models.CountryRecord{
		frenchIP:   {IsoCode: "FR", Name: "France"},
		canadianIP: {IsoCode: "CA", Name: "Canada"},
	}}
	metrics := observability.NewMockMetricsRegistry()
	log := analytics.NewMockRedirectLog()
	svc := New(Options{
		Settings: s,
		Sites:    cat,
		Elements: cat,
		Geo:      geo,
		Log:      log,
		Logger:   zaptest.NewLogger(t),
		Metrics:  metrics,
	})
	return fixture{svc: svc, geo: geo, metrics: metrics, log: log}
}

func newRequest(ip string, query url.Values) (*models.RedirectRequest, *session.MemoryStore) {
	store := session.NewMemoryStore()
	if query == nil {
		query = url.Values{}
	}
	return &models.RedirectRequest{
		IPAddress:   ip,
		UserAgent:   safariUA,
		CurrentURI:  "blog",
		CurrentURL:  "https://example.com/blog",
		CurrentSite: testSites()[0],
		Query:       query,
		Session:     store,
	}, store
}

func TestOnRequestRedirects(t *testing.T) {
	f := newFixture(t, testSettings())
	req, store := newRequest(frenchIP, nil)

	out := f.svc.OnRequest(context.Background(), req)

	assert.Equal(t, "https://example.fr/?redirected=✓", out.RedirectTo)
	assert.Empty(t, out.HaltedBy)
	assert.False(t, out.ShouldSetBannerCookie)
	assert.True(t, store.Flashed("redirected"))
	assert.Equal(t, 1, f.metrics.Redirects["fr-site"])
	assert.Empty(t, f.log.Recorded(), "logging is off by default")

	store.NextRequest()
	assert.True(t, f.svc.WasRedirected(req))
}

func TestOnRequestStaysOnHomeSite(t *testing.T) {
	f := newFixture(t, testSettings())
	req, store := newRequest("192.0.2.1", nil)
	f.geo.records["192.0.2.1"] = models.CountryRecord{IsoCode: "US"}

	out := f.svc.OnRequest(context.Background(), req)

	assert.Empty(t, out.RedirectTo)
	assert.Equal(t, "site", out.HaltedBy)
	assert.False(t, store.Flashed("redirected"))
	assert.Empty(t, f.metrics.Redirects)
}

func TestOnRequestLogsRedirects(t *testing.T) {
	s := testSettings()
	s.EnableLogging = true
	f := newFixture(t, s)
	req, _ := newRequest(frenchIP, nil)

	out := f.svc.OnRequest(context.Background(), req)

	events := f.log.Recorded()
	require.Len(t, events, 1)
	ev := events[0]
	_, err := uuid.Parse(ev.ID)
	assert.NoError(t, err)
	assert.Equal(t, frenchIP, ev.IPAddress)
	assert.Equal(t, "FR", ev.CountryCode)
	assert.Equal(t, "en-site", ev.FromSite)
	assert.Equal(t, "fr-site", ev.ToSite)
	assert.Equal(t, "blog", ev.FromURI)
	assert.Equal(t, out.RedirectTo, ev.ToURL)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestOnRequestLogFailureKeepsRedirect(t *testing.T) {
	s := testSettings()
	s.EnableLogging = true
	f := newFixture(t, s)
	f.log.Err = errors.New("clickhouse down")
	req, _ := newRequest(frenchIP, nil)

	out := f.svc.OnRequest(context.Background(), req)

	assert.NotEmpty(t, out.RedirectTo)
	assert.Equal(t, 1, f.metrics.LogErrors)
}

func TestOnRequestOverrideLinkPinsCurrentSite(t *testing.T) {
	f := newFixture(t, testSettings())
	req, store := newRequest(frenchIP, url.Values{"selected-locale": {"✓"}})

	out := f.svc.OnRequest(context.Background(), req)

	assert.Empty(t, out.RedirectTo)
	assert.Equal(t, "site", out.HaltedBy)
	assert.Equal(t, 0, f.geo.calls)
	code, ok := store.Cookie("countryRedirect")
	require.True(t, ok)
	assert.Equal(t, "us", code)
	assert.True(t, f.svc.WasOverridden(req))
}

func TestOnRequestOverrideWithHandle(t *testing.T) {
	f := newFixture(t, testSettings())
	req, store := newRequest("192.0.2.1", url.Values{"selected-locale": {"fr-site"}})

	out := f.svc.OnRequest(context.Background(), req)

	assert.Equal(t, "https://example.fr/?redirected=✓", out.RedirectTo)
	code, _ := store.Cookie("countryRedirect")
	assert.Equal(t, "fr", code)
}

func TestOnRequestBannerCookie(t *testing.T) {
	t.Run("query parameter", func(t *testing.T) {
		f := newFixture(t, testSettings())
		req, store := newRequest(frenchIP, url.Values{"fromBanner": {"✓"}})

		out := f.svc.OnRequest(context.Background(), req)

		assert.True(t, out.ShouldSetBannerCookie)
		v, ok := store.Cookie("countryRedirectBanner")
		assert.True(t, ok)
		assert.Equal(t, "1", v)
	})

	t.Run("flash", func(t *testing.T) {
		f := newFixture(t, testSettings())
		req, store := newRequest(frenchIP, nil)
		store.SetFlash("fromBanner")
		store.NextRequest()

		out := f.svc.OnRequest(context.Background(), req)
		assert.True(t, out.ShouldSetBannerCookie)
		assert.True(t, f.svc.WasRedirectedFromBanner(req))
	})

	t.Run("absent", func(t *testing.T) {
		f := newFixture(t, testSettings())
		req, store := newRequest(frenchIP, nil)

		out := f.svc.OnRequest(context.Background(), req)
		assert.False(t, out.ShouldSetBannerCookie)
		_, ok := store.Cookie("countryRedirectBanner")
		assert.False(t, ok)
	})
}

func TestOnRequestWithoutSession(t *testing.T) {
	f := newFixture(t, testSettings())
	req, _ := newRequest(frenchIP, nil)
	req.Session = nil

	out := f.svc.OnRequest(context.Background(), req)

	assert.NotEmpty(t, out.RedirectTo)
	assert.NotNil(t, req.Session)
}

func TestLinks(t *testing.T) {
	f := newFixture(t, testSettings())

	links := f.svc.Links(context.Background())

	require.Len(t, links, 3)
	assert.Equal(t, models.Link{
		SiteName:   "International",
		SiteHandle: "intl-site",
		URL:        "https://example.com/intl/?selected-locale=%E2%9C%93",
	}, links[1])
}

func TestLinkURL(t *testing.T) {
	f := newFixture(t, testSettings())

	assert.Equal(t, "https://example.fr/?selected-locale=%E2%9C%93", f.svc.linkURL("https://example.fr/?"))
	assert.Equal(t, "https://example.fr/?lang=fr&selected-locale=%E2%9C%93", f.svc.linkURL("https://example.fr/?lang=fr"))

	s := testSettings()
	s.OverrideLocaleParam = ""
	f = newFixture(t, s)
	assert.Equal(t, "https://example.fr/", f.svc.linkURL("https://example.fr/"))
}

func TestBanner(t *testing.T) {
	f := newFixture(t, testSettings())
	req, _ := newRequest(canadianIP, nil)

	b := f.svc.Banner(context.Background(), req, "", "")

	require.NotNil(t, b)
	assert.Equal(t, "Switch to the international site?", b.Text)
	assert.Equal(t, "https://example.com/intl/?redirected=✓&fromBanner=✓", b.URL)
	assert.Equal(t, "Canada", b.CountryName)
	assert.Equal(t, 1, f.metrics.Banners["intl-site"])

	req, _ = newRequest(frenchIP, nil)
	assert.Nil(t, f.svc.Banner(context.Background(), req, "", ""))
}

func TestIPAddress(t *testing.T) {
	f := newFixture(t, testSettings())

	assert.Equal(t, "203.0.113.5", f.svc.IPAddress(" 203.0.113.5 "))
	assert.Equal(t, "2001:db8::1", f.svc.IPAddress("2001:db8::1"))
	assert.Empty(t, f.svc.IPAddress("127.0.0.1"))
	assert.Empty(t, f.svc.IPAddress("::1"))
	assert.Empty(t, f.svc.IPAddress("not-an-ip"))
	assert.Empty(t, f.svc.IPAddress(""))

	s := testSettings()
	s.OverrideIP = "198.51.100.7"
	f = newFixture(t, s)
	assert.Equal(t, "198.51.100.7", f.svc.IPAddress("127.0.0.1"))
}

func TestCountryHelpers(t *testing.T) {
	f := newFixture(t, testSettings())
	req, _ := newRequest(canadianIP, nil)

	assert.Equal(t, "CA", f.svc.CountryCode(context.Background(), req))
	info, ok := f.svc.CountryInfo(context.Background(), req)
	require.True(t, ok)
	assert.Equal(t, "Canada", info.Name)
	assert.False(t, f.svc.WasOverridden(req))
	assert.False(t, f.svc.WasRedirected(req))

	svc := New(Options{Settings: testSettings(), Sites: models.NewInMemoryCatalogue(testSites(), nil)})
	_, ok = svc.CountryInfo(context.Background(), req)
	assert.False(t, ok)
}
