package logic

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/models"
	"github.com/patrickwarner/countryredirect/internal/session"
)

// markerValue is the value of the redirected and banner marker parameters.
const markerValue = "✓"

// URLBuilder computes redirect destinations for a resolved site handle.
type URLBuilder struct {
	settings config.Settings
	sites    models.SiteCatalogue
	elements models.ElementCatalogue
	logger   *zap.Logger
}

// NewURLBuilder returns a builder. elements may be nil when the host has no
// content catalogue.
func NewURLBuilder(settings config.Settings, sites models.SiteCatalogue, elements models.ElementCatalogue, logger *zap.Logger) *URLBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &URLBuilder{settings: settings, sites: sites, elements: elements, logger: logger}
}

// Build returns the destination for target given the site and element the
// visitor is on. The second result is false when no redirect should happen.
func (b *URLBuilder) Build(ctx context.Context, target, currentSiteHandle string, current *models.Element, store session.Store) (string, bool) {
	return b.build(ctx, target, currentSiteHandle, current, nil, store)
}

// BuildForRequest builds the destination for a request that went through the
// check chain, reusing the locale variant the chain already matched.
func (b *URLBuilder) BuildForRequest(ctx context.Context, req *models.RedirectRequest) (string, bool) {
	return b.build(ctx, req.SiteHandle, req.CurrentSite.Handle, req.Element, req.MatchedElement, req.Session)
}

func (b *URLBuilder) build(ctx context.Context, target, currentSiteHandle string, current, variant *models.Element, store session.Store) (string, bool) {
	if target == "" {
		return "", false
	}

	// A URL in the country map is a one-time destination, not a preference.
	if IsAbsoluteURL(target) {
		if store != nil && b.settings.CookieName != "" {
			store.ClearCookie(b.settings.CookieName)
		}
		return target, true
	}

	if target == currentSiteHandle || b.sites == nil {
		return "", false
	}
	site, err := b.sites.SiteByHandle(ctx, target)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			b.logger.Warn("site lookup failed", zap.String("site", target), zap.Error(err))
		}
		return "", false
	}
	if site.BaseURL == "" {
		return "", false
	}

	if variant == nil && current != nil {
		if v, ok := b.LocaleVariant(ctx, current, site); ok {
			variant = &v
		}
	}
	if variant != nil && variant.URL != "" {
		return AppendParam(variant.URL, b.settings.RedirectedParam), true
	}
	return AppendParam(site.BaseURL, b.settings.RedirectedParam), true
}

// LocaleVariant returns the rendering of the current element in site. Only
// elements that have a URL of their own are considered.
func (b *URLBuilder) LocaleVariant(ctx context.Context, current *models.Element, site models.Site) (models.Element, bool) {
	if b.elements == nil || current == nil || current.URL == "" {
		return models.Element{}, false
	}
	v, err := b.elements.LocaleVariant(ctx, current.Ref(), site.ID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			b.logger.Warn("locale variant lookup failed",
				zap.Int("element_id", current.ID),
				zap.String("site", site.Handle),
				zap.Error(err))
		}
		return models.Element{}, false
	}
	if v.URL == "" {
		return models.Element{}, false
	}
	return v, true
}

// IsAbsoluteURL reports whether s is a URL with a scheme and a host.
func IsAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// AppendParam appends "param=✓" to rawURL. A URL without a path gets "/"
// first; an existing query string is extended, never replaced. An empty
// param leaves the URL untouched.
func AppendParam(rawURL, param string) string {
	if param == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	hasQuery := false
	if err == nil {
		hasQuery = u.RawQuery != "" || u.ForceQuery
	}

	head, fragment := rawURL, ""
	if i := strings.IndexByte(head, '#'); i >= 0 {
		head, fragment = head[:i], head[i:]
	}
	if err == nil && u.Path == "" && u.Opaque == "" {
		if i := strings.IndexByte(head, '?'); i >= 0 {
			head = head[:i] + "/" + head[i:]
		} else {
			head += "/"
		}
	}

	sep := "?"
	if hasQuery {
		sep = "&"
		if strings.HasSuffix(head, "?") || strings.HasSuffix(head, "&") {
			sep = ""
		}
	}
	return head + sep + param + "=" + markerValue + fragment
}
