package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/patrickwarner/countryredirect/internal/models"
)

// Settings is the redirect behaviour configuration. It is loaded once and
// passed by value to every component, which treat it as read-only.
// CountryMap.Set never changes other copies; Banners and the catalogue
// slices are shared.
type Settings struct {
	Enabled             bool              `yaml:"enableRedirect"`
	CountryMap          models.CountryMap `yaml:"countryMap"`
	IgnoredSegments     []string          `yaml:"ignoreSegments"`
	CookieName          string            `yaml:"cookieName"`
	CookieNameBanner    string            `yaml:"cookieNameBanner"`
	OverrideLocaleParam string            `yaml:"overrideLocaleParam"`
	RedirectedParam     string            `yaml:"redirectedParam"`
	BannerParam         string            `yaml:"bannerParam"`
	// OverrideIP replaces the client IP, for testing from local machines.
	OverrideIP    string `yaml:"overrideIp"`
	EnableLogging bool   `yaml:"enableLogging"`
	// Banners maps a country code or a site handle to banner text.
	Banners map[string]string `yaml:"banners"`
	// RespectBrowserLanguage halts redirects for visitors whose first
	// browser language is the current site's and not the resolved site's.
	RespectBrowserLanguage bool `yaml:"respectBrowserLanguage"`

	// Sites and Elements seed the in-memory catalogue when no database is
	// configured.
	Sites    []models.Site    `yaml:"sites"`
	Elements []models.Element `yaml:"elements"`
}

// DefaultSettings returns the settings used for any key absent from the file.
func DefaultSettings() Settings {
	return Settings{
		Enabled:             true,
		CookieName:          "countryRedirect",
		CookieNameBanner:    "countryRedirectBanner",
		OverrideLocaleParam: "selected-locale",
		RedirectedParam:     "redirected",
		BannerParam:         "fromBanner",
		Banners:             map[string]string{},
	}
}

// IgnoreSegments returns the configured ignored segments.
func (s Settings) IgnoreSegments() []models.IgnoreSegment {
	return models.NewIgnoreSegments(s.IgnoredSegments)
}

// LoadSettings reads settings from a YAML file. A missing file yields the
// defaults.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings decodes YAML settings over the defaults.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	if s.Banners == nil {
		s.Banners = map[string]string{}
	}
	if err := checkBannerKeys(s.Banners); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return s, nil
}

// checkBannerKeys rejects banner keys that differ only in case, since
// country codes are matched case-insensitively.
func checkBannerKeys(banners map[string]string) error {
	keys := make([]string, 0, len(banners))
	for k := range banners {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	seen := make(map[string]string, len(keys))
	for _, k := range keys {
		lower := strings.ToLower(k)
		if prev, ok := seen[lower]; ok {
			return fmt.Errorf("banners: duplicate keys %q and %q", prev, k)
		}
		seen[lower] = k
	}
	return nil
}
