package checks

import (
	"context"

	"github.com/patrickwarner/countryredirect/internal/logic"
	"github.com/patrickwarner/countryredirect/internal/models"
)

// SiteCheck halts self-redirects and targets without a usable base URL.
// Absolute URL targets pass untouched.
type SiteCheck struct {
	Sites models.SiteCatalogue
}

func (c SiteCheck) Name() string { return "site" }

func (c SiteCheck) Execute(ctx context.Context, req *models.RedirectRequest) Result {
	if logic.IsAbsoluteURL(req.SiteHandle) {
		return Continue
	}
	if req.SiteHandle == "" || req.SiteHandle == req.CurrentSite.Handle || c.Sites == nil {
		return Halt
	}
	site, err := c.Sites.SiteByHandle(ctx, req.SiteHandle)
	if err != nil || site.BaseURL == "" {
		return Halt
	}
	req.TargetSite = &site
	return Continue
}
