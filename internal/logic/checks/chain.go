package checks

import (
	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/logic"
	"github.com/patrickwarner/countryredirect/internal/models"
)

// Deps are the collaborators of the default chain.
type Deps struct {
	Settings config.Settings
	Detector logic.CrawlerDetector
	Override *logic.OverrideResolver
	Resolver *logic.CountryResolver
	Sites    models.SiteCatalogue
	Builder  *logic.URLBuilder
}

// DefaultChecks returns the chain in its fixed order: enabled,
// ignored_segment, bot, geo, language, site, element.
func DefaultChecks(d Deps) []Check {
	geo := GeoCheck{}
	if d.Override != nil {
		geo.Resolver = d.Override
	}
	lang := LanguageCheck{Sites: d.Sites, RespectBrowserLanguage: d.Settings.RespectBrowserLanguage}
	if d.Resolver != nil {
		lang.Resolver = d.Resolver
	}
	element := ElementCheck{}
	if d.Builder != nil {
		element.Finder = d.Builder
	}
	return []Check{
		EnabledCheck{Enabled: d.Settings.Enabled},
		IgnoredSegmentCheck{Segments: d.Settings.IgnoreSegments()},
		BotCheck{Detector: d.Detector},
		geo,
		lang,
		SiteCheck{Sites: d.Sites},
		element,
	}
}
