package logic

import (
	"strings"

	"github.com/patrickwarner/countryredirect/internal/models"
)

// CountryResolver maps a country code and browser languages to a target site
// handle or absolute URL using the configured country map.
type CountryResolver struct {
	countryMap models.CountryMap
}

// NewCountryResolver returns a resolver over m.
func NewCountryResolver(m models.CountryMap) *CountryResolver {
	return &CountryResolver{countryMap: m}
}

// ResolveSiteHandle returns the target for countryCode. Multi-language
// countries pick the first browser language with an entry and fall through
// to the wildcard entry when none matches. The second result is false when
// no target exists.
func (r *CountryResolver) ResolveSiteHandle(countryCode string, languages []string) (string, bool) {
	code := strings.ToLower(countryCode)

	if target, ok := r.countryMap.Lookup(code); ok {
		if !target.IsLanguageMap() {
			return resolveTarget(target, languages)
		}
		if handle, ok := matchLanguage(languages, target.Languages); ok {
			return handle, true
		}
	}
	if code == models.WildcardCountry {
		return "", false
	}
	if target, ok := r.countryMap.Lookup(models.WildcardCountry); ok {
		return resolveTarget(target, languages)
	}
	return "", false
}

func resolveTarget(target models.CountryTarget, languages []string) (string, bool) {
	if target.IsLanguageMap() {
		return matchLanguage(languages, target.Languages)
	}
	if target.Value == "" {
		return "", false
	}
	return target.Value, true
}
