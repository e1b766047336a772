package logic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/patrickwarner/countryredirect/internal/models"
	"github.com/patrickwarner/countryredirect/internal/session"
)

func TestAppendParam(t *testing.T) {
	tests := []struct {
		url   string
		param string
		want  string
	}{
		{"https://x.test", "redirected", "https://x.test/?redirected=✓"},
		{"https://x.test/", "redirected", "https://x.test/?redirected=✓"},
		{"https://x.test/fr/page", "redirected", "https://x.test/fr/page?redirected=✓"},
		{"https://x.test/page?a=1", "redirected", "https://x.test/page?a=1&redirected=✓"},
		{"https://x.test?a=1", "fromBanner", "https://x.test/?a=1&fromBanner=✓"},
		{"https://x.test/page?", "redirected", "https://x.test/page?redirected=✓"},
		{"https://x.test/page#top", "redirected", "https://x.test/page?redirected=✓#top"},
		{"https://x.test/page?a=1#top", "redirected", "https://x.test/page?a=1&redirected=✓#top"},
		{"https://x.test/page", "", "https://x.test/page"},
	}
	for _, tt := range tests {
		t.Run(tt.url+"+"+tt.param, func(t *testing.T) {
			assert.Equal(t, tt.want, AppendParam(tt.url, tt.param))
		})
	}
}

func TestIsAbsoluteURL(t *testing.T) {
	assert.True(t, IsAbsoluteURL("https://example.co.uk/"))
	assert.True(t, IsAbsoluteURL("http://x.test"))
	assert.False(t, IsAbsoluteURL("en-site"))
	assert.False(t, IsAbsoluteURL("/relative/path"))
	assert.False(t, IsAbsoluteURL("mailto:someone@example.com"))
}

func newTestBuilder(t *testing.T) *URLBuilder {
	cat := testCatalogue()
	return NewURLBuilder(testSettings(), cat, cat, zaptest.NewLogger(t))
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(t)
	widget := &testElements()[0]
	blog := &testElements()[2]

	tests := []struct {
		name    string
		target  string
		current string
		element *models.Element
		want    string
		ok      bool
	}{
		{"base url", "intl-site", "en-site", nil, "https://example.com/intl/?redirected=✓", true},
		{"locale variant", "intl-site", "en-site", widget, "https://example.com/intl/products/widget?redirected=✓", true},
		{"no variant falls back to base url", "intl-site", "en-site", blog, "https://example.com/intl/?redirected=✓", true},
		{"same site", "en-site", "en-site", nil, "", false},
		{"unknown site", "mars", "en-site", nil, "", false},
		{"site without url", "no-url", "en-site", nil, "", false},
		{"empty target", "", "en-site", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := b.Build(ctx, tt.target, tt.current, tt.element, session.NewMemoryStore())
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildAbsoluteURLClearsCountryCookie(t *testing.T) {
	b := newTestBuilder(t)
	store := session.NewMemoryStore()
	store.SetCookie("countryRedirect", "gb", time.Now().Add(time.Hour))

	got, ok := b.Build(context.Background(), "https://example.co.uk/", "en-site", nil, store)
	require.True(t, ok)
	assert.Equal(t, "https://example.co.uk/", got)

	_, ok = store.Cookie("countryRedirect")
	assert.False(t, ok)
}

func TestBuildForRequestUsesMatchedElement(t *testing.T) {
	b := newTestBuilder(t)
	req := &models.RedirectRequest{
		SiteHandle:     "intl-site",
		CurrentSite:    testSites()[0],
		MatchedElement: &models.Element{URL: "https://example.com/intl/matched"},
	}

	got, ok := b.BuildForRequest(context.Background(), req)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/intl/matched?redirected=✓", got)
}

func TestBuildWithoutRedirectedParam(t *testing.T) {
	s := testSettings()
	s.RedirectedParam = ""
	cat := testCatalogue()
	b := NewURLBuilder(s, cat, nil, nil)

	got, ok := b.Build(context.Background(), "intl-site", "en-site", &testElements()[0], nil)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/intl/", got)
}
