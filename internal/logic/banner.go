package logic

import (
	"context"
	"slices"
	"strings"

	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/models"
)

// BannerResolver decides whether to offer a manual switch banner. It
// recomputes country and target from scratch and ignores check halts.
type BannerResolver struct {
	settings config.Settings
	// byCountry is the banner table keyed by lower-cased key.
	byCountry map[string]string
	override *OverrideResolver
	resolver *CountryResolver
	builder  *URLBuilder
	sites    models.SiteCatalogue
	geo      CountryLookup
}

// NewBannerResolver returns a resolver.
func NewBannerResolver(settings config.Settings, override *OverrideResolver, resolver *CountryResolver, builder *URLBuilder, sites models.SiteCatalogue, geo CountryLookup) *BannerResolver {
	return &BannerResolver{
		settings:  settings,
		byCountry: countryBanners(settings.Banners),
		override:  override,
		resolver:  resolver,
		builder:   builder,
		sites:     sites,
		geo:       geo,
	}
}

// countryBanners lower-cases the banner keys. When keys differ only in case
// the lower-case spelling wins, then the greatest key.
func countryBanners(banners map[string]string) map[string]string {
	keys := make([]string, 0, len(banners))
	for k := range banners {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		// lower-case spellings sort last so they overwrite
		al, bl := a == strings.ToLower(a), b == strings.ToLower(b)
		if al != bl {
			if al {
				return 1
			}
			return -1
		}
		return strings.Compare(a, b)
	})
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[strings.ToLower(k)] = banners[k]
	}
	return out
}

// Resolve returns the banner for req, or false when none applies. An empty
// currentSiteHandle means the site serving req.
func (b *BannerResolver) Resolve(ctx context.Context, req *models.RedirectRequest, currentURL, currentSiteHandle string) (*models.Banner, bool) {
	if currentSiteHandle == "" {
		currentSiteHandle = req.CurrentSite.Handle
	}
	if currentURL == "" {
		currentURL = req.CurrentURL
	}

	countryCode := b.override.ResolveCountryCode(ctx, req)
	handle, ok := b.resolver.ResolveSiteHandle(countryCode, req.Languages)
	if !ok {
		return nil, false
	}

	element := req.Element
	if currentURL != req.CurrentURL {
		// The element on req belongs to another page.
		element = nil
	}
	redirectURL, ok := b.builder.Build(ctx, handle, currentSiteHandle, element, req.Session)
	if !ok {
		return nil, false
	}

	text := b.bannerText(countryCode, handle)
	if text == "" {
		return nil, false
	}
	if req.Session != nil && b.settings.CookieNameBanner != "" {
		if _, dismissed := req.Session.Cookie(b.settings.CookieNameBanner); dismissed {
			return nil, false
		}
	}

	banner := &models.Banner{
		Text:       text,
		URL:        AppendParam(redirectURL, b.settings.BannerParam),
		SiteHandle: handle,
	}
	if b.geo != nil {
		if info, ok := b.geo.CountryRecordForIP(ctx, req.IPAddress); ok {
			banner.CountryName = info.Name
		}
	}
	if b.sites != nil && !IsAbsoluteURL(handle) {
		if site, err := b.sites.SiteByHandle(ctx, handle); err == nil {
			banner.SiteName = site.Name
		}
	}
	return banner, true
}

// bannerText matches the banner table by country code, case-insensitively,
// then by site handle. A country key wins even when its text is empty.
func (b *BannerResolver) bannerText(countryCode, handle string) string {
	if text, ok := b.byCountry[strings.ToLower(countryCode)]; ok {
		return text
	}
	return b.settings.Banners[handle]
}
