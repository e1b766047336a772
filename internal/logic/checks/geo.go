package checks

import (
	"context"

	"github.com/patrickwarner/countryredirect/internal/models"
)

// CountryCodeResolver determines the effective country of a request.
type CountryCodeResolver interface {
	ResolveCountryCode(ctx context.Context, req *models.RedirectRequest) string
}

// GeoCheck attaches the visitor's country code. It never halts.
type GeoCheck struct {
	Resolver CountryCodeResolver
}

func (c GeoCheck) Name() string { return "geo" }

func (c GeoCheck) Execute(ctx context.Context, req *models.RedirectRequest) Result {
	req.CountryCode = models.WildcardCountry
	if c.Resolver != nil {
		req.CountryCode = c.Resolver.ResolveCountryCode(ctx, req)
	}
	return Continue
}
