package models

import (
	"net/url"

	"github.com/patrickwarner/countryredirect/internal/session"
)

// RedirectRequest is the mutable decision context for one inbound request.
// Checks read the inputs and write the outputs; it is never shared between
// requests.
type RedirectRequest struct {
	// IPAddress is the validated client IP, empty when absent, invalid or local.
	IPAddress  string
	UserAgent  string
	CurrentURI string
	CurrentURL string
	// CurrentSite is the site serving the request.
	CurrentSite Site
	// Element is the content element being viewed, if the host resolved one.
	Element *Element
	// Languages holds the accepted browser languages in preference order.
	Languages []string
	Query     url.Values
	Session   session.Store

	CountryCode    string
	SiteHandle     string
	TargetSite     *Site
	MatchedElement *Element
	// RedirectURL is empty when the visitor must not be redirected.
	RedirectURL string
	// HaltedBy names the check that stopped the chain.
	HaltedBy string
	// Executed lists the checks run, in order.
	Executed []string
}

// Param returns the first value of a query parameter. An empty name never
// matches.
func (r *RedirectRequest) Param(name string) string {
	if name == "" || r.Query == nil {
		return ""
	}
	return r.Query.Get(name)
}

// HasParam reports whether a non-empty query parameter is present.
func (r *RedirectRequest) HasParam(name string) bool {
	return r.Param(name) != ""
}
