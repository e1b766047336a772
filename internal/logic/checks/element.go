package checks

import (
	"context"

	"github.com/patrickwarner/countryredirect/internal/models"
)

// VariantFinder looks up the rendering of an element in another site.
type VariantFinder interface {
	LocaleVariant(ctx context.Context, current *models.Element, site models.Site) (models.Element, bool)
}

// ElementCheck records the locale variant of the viewed element in the
// target site, so the redirect lands on the same content. It never halts.
type ElementCheck struct {
	Finder VariantFinder
}

func (c ElementCheck) Name() string { return "element" }

func (c ElementCheck) Execute(ctx context.Context, req *models.RedirectRequest) Result {
	if c.Finder == nil || req.Element == nil || req.TargetSite == nil {
		return Continue
	}
	if v, ok := c.Finder.LocaleVariant(ctx, req.Element, *req.TargetSite); ok {
		req.MatchedElement = &v
	}
	return Continue
}
