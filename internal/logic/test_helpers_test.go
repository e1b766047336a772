package logic

import (
	"context"
	"sync"

	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/models"
)

// fakeGeo resolves IPs from a fixed table and counts lookups.
type fakeGeo struct {
	mu      sync.Mutex
	records map[string]models.CountryRecord
	calls   int
}

func newFakeGeo(records map[string]models.CountryRecord) *fakeGeo {
	return &fakeGeo{records: records}
}

func (f *fakeGeo) CountryCodeForIP(ctx context.Context, ip string) string {
	if rec, ok := f.CountryRecordForIP(ctx, ip); ok {
		return rec.IsoCode
	}
	return models.WildcardCountry
}

func (f *fakeGeo) CountryRecordForIP(ctx context.Context, ip string) (models.CountryRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	rec, ok := f.records[ip]
	return rec, ok
}

func (f *fakeGeo) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testSites() []models.Site {
	return []models.Site{
		{ID: 1, Handle: "en-site", Name: "United States", BaseURL: "https://example.com/", Language: "en-US", Primary: true},
		{ID: 2, Handle: "intl-site", Name: "International", BaseURL: "https://example.com/intl/", Language: "en"},
		{ID: 3, Handle: "ch-de", Name: "Schweiz", BaseURL: "https://example.ch/de/", Language: "de-CH"},
		{ID: 4, Handle: "ch-fr", Name: "Suisse", BaseURL: "https://example.ch/fr/", Language: "fr-CH"},
		{ID: 5, Handle: "no-url", Name: "Unpublished"},
	}
}

func testElements() []models.Element {
	return []models.Element{
		{ID: 7, Type: "entry", SiteID: 1, URI: "products/widget", URL: "https://example.com/products/widget"},
		{ID: 7, Type: "entry", SiteID: 2, URI: "products/widget", URL: "https://example.com/intl/products/widget"},
		{ID: 8, Type: "entry", SiteID: 1, URI: "blog", URL: "https://example.com/blog"},
	}
}

func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.CountryMap = models.NewCountryMap(
		models.CountryMapEntry{Country: "us", Target: models.SiteTarget("en-site")},
		models.CountryMapEntry{Country: "ch", Target: models.LanguageTargets(
			models.LanguageTarget{Language: "de", Handle: "ch-de"},
			models.LanguageTarget{Language: "fr", Handle: "ch-fr"},
		)},
		models.CountryMapEntry{Country: "gb", Target: models.SiteTarget("https://example.co.uk/")},
		models.CountryMapEntry{Country: "*", Target: models.SiteTarget("intl-site")},
	)
	s.Banners = map[string]string{"ca": "Switch to Canada?"}
	return s
}

func testCatalogue() *models.InMemoryCatalogue {
	return models.NewInMemoryCatalogue(testSites(), testElements())
}
