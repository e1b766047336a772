package logic

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/models"
)

// CookieLifetime is how long country and banner cookies are kept.
const CookieLifetime = 30 * 24 * time.Hour

// CountryLookup resolves an IP address to a country. Implementations never
// fail; unknown addresses resolve to models.WildcardCountry.
type CountryLookup interface {
	CountryCodeForIP(ctx context.Context, ip string) string
	CountryRecordForIP(ctx context.Context, ip string) (models.CountryRecord, bool)
}

// OverrideResolver determines the effective country code of a request:
// override parameter, then country cookie, then geolocation.
type OverrideResolver struct {
	settings config.Settings
	geo      CountryLookup
	logger   *zap.Logger
	now      func() time.Time
}

// NewOverrideResolver returns a resolver.
func NewOverrideResolver(settings config.Settings, geo CountryLookup, logger *zap.Logger) *OverrideResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverrideResolver{settings: settings, geo: geo, logger: logger, now: time.Now}
}

// ResolveCountryCode returns the country code for req, persisting it in the
// country cookie as a side effect. It returns "*" when the country is unknown.
func (o *OverrideResolver) ResolveCountryCode(ctx context.Context, req *models.RedirectRequest) string {
	name := o.settings.CookieName
	store := req.Session

	if value := req.Param(o.settings.OverrideLocaleParam); value != "" {
		if code, ok := o.overrideCountry(value, req.CurrentSite.Handle); ok && name != "" && store != nil {
			o.logger.Debug("country overridden",
				zap.String("value", value),
				zap.String("country", code))
			store.SetCookie(name, code, o.now().Add(CookieLifetime))
		}
	}

	if name != "" && store != nil {
		if code, ok := store.Cookie(name); ok {
			return code
		}
	}

	code := models.WildcardCountry
	if o.geo != nil {
		code = o.geo.CountryCodeForIP(ctx, req.IPAddress)
	}
	if name != "" && store != nil {
		store.SetCookie(name, code, o.now().Add(CookieLifetime))
	}
	return code
}

// overrideCountry scans the whole country map for entries that can resolve
// to locale; the last matching entry wins. When value is not itself a
// registered handle, the current site handle is matched instead, which is
// what links built by Links carry.
func (o *OverrideResolver) overrideCountry(value, currentHandle string) (string, bool) {
	locale := value
	if !o.registered(value) {
		locale = currentHandle
	}
	if locale == "" {
		return "", false
	}
	var (
		code  string
		found bool
	)
	for _, e := range o.settings.CountryMap.Entries() {
		for _, h := range e.Target.Handles() {
			if h == locale {
				code, found = e.Country, true
			}
		}
	}
	return code, found
}

func (o *OverrideResolver) registered(handle string) bool {
	for _, e := range o.settings.CountryMap.Entries() {
		for _, h := range e.Target.Handles() {
			if h == handle {
				return true
			}
		}
	}
	return false
}
