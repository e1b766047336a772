package checks

import (
	"context"

	"github.com/patrickwarner/countryredirect/internal/logic"
	"github.com/patrickwarner/countryredirect/internal/models"
)

// SiteHandleResolver maps a country and browser languages to a target.
type SiteHandleResolver interface {
	ResolveSiteHandle(countryCode string, languages []string) (string, bool)
}

// LanguageCheck picks the candidate site from the country and the browser
// languages and halts when there is none. With RespectBrowserLanguage set, it
// also cross-checks the visitor's first language against the resolved site:
// a visitor already reading their language is kept unless the resolved site
// speaks it too.
type LanguageCheck struct {
	Resolver               SiteHandleResolver
	Sites                  models.SiteCatalogue
	RespectBrowserLanguage bool
}

func (c LanguageCheck) Name() string { return "language" }

func (c LanguageCheck) Execute(ctx context.Context, req *models.RedirectRequest) Result {
	if c.Resolver == nil {
		return Halt
	}
	handle, ok := c.Resolver.ResolveSiteHandle(req.CountryCode, req.Languages)
	if !ok {
		return Halt
	}
	req.SiteHandle = handle

	if !c.RespectBrowserLanguage || len(req.Languages) == 0 {
		return Continue
	}
	first := req.Languages[0]
	if !logic.SameLanguage(first, req.CurrentSite.Language) {
		return Continue
	}
	if logic.SameLanguage(first, c.targetLanguage(ctx, handle)) {
		return Continue
	}
	return Halt
}

// targetLanguage is the language of the resolved site, empty for URL
// targets and unknown handles.
func (c LanguageCheck) targetLanguage(ctx context.Context, handle string) string {
	if c.Sites == nil || logic.IsAbsoluteURL(handle) {
		return ""
	}
	site, err := c.Sites.SiteByHandle(ctx, handle)
	if err != nil {
		return ""
	}
	return site.Language
}
