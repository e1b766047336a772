package models

import (
	"net/url"
	"strings"
)

// Site is one locale or region variant of the published content. Handles are
// unique and stable; BaseURL may be empty for sites that are not publicly
// routable, in which case they are never redirect targets.
type Site struct {
	ID       int    `json:"id" yaml:"id"`
	Handle   string `json:"handle" yaml:"handle"`
	Name     string `json:"name" yaml:"name"`
	BaseURL  string `json:"base_url" yaml:"baseUrl"`
	Language string `json:"language" yaml:"language"`
	Primary  bool   `json:"primary" yaml:"primary"`
}

// ElementRef identifies a content element independent of the site it is
// rendered in.
type ElementRef struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

// Element is a single locale rendering of a content element.
type Element struct {
	ID     int    `json:"id" yaml:"id"`
	Type   string `json:"type" yaml:"type"`
	SiteID int    `json:"site_id" yaml:"siteId"`
	URI    string `json:"uri" yaml:"uri"`
	URL    string `json:"url" yaml:"url"`
}

// Ref returns the site independent reference of the element.
func (e Element) Ref() ElementRef {
	return ElementRef{ID: e.ID, Type: e.Type}
}

// RelativeURI strips the site's base path from a request URI, giving the
// URI elements are routed at within the site.
func (s Site) RelativeURI(uri string) string {
	uri = strings.Trim(uri, "/")
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return uri
	}
	base := strings.Trim(u.Path, "/")
	if base == "" {
		return uri
	}
	if uri == base {
		return ""
	}
	if rest, ok := strings.CutPrefix(uri, base+"/"); ok {
		return rest
	}
	return uri
}
