package api

import (
	"net/http"
	"time"

	"github.com/patrickwarner/countryredirect/internal/models"
)

// LinksHandler lists every site with a link that pins the visitor to it.
func (s *Server) LinksHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "links"
	const method = "GET"

	links := s.Redirects.Links(r.Context())
	if links == nil {
		links = []models.Link{}
	}
	writeJSON(w, links)

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

// BannerHandler returns the switch banner for the page given by the url
// query parameter, or 204 when no banner applies. site overrides the site
// the page belongs to.
func (s *Server) BannerHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "banner"
	const method = "GET"

	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		pageURL = r.Referer()
	}
	if pageURL == "" {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}

	req := s.newRedirectRequest(w, r, pageURL)
	banner := s.Redirects.Banner(r.Context(), req, pageURL, r.URL.Query().Get("site"))
	if banner == nil {
		s.Metrics.IncrementRequests(endpoint, method, "204")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, banner)

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

// CountryHandler reports the effective country of the visitor.
func (s *Server) CountryHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "country"
	const method = "GET"

	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		pageURL = requestURL(r)
	}
	req := s.newRedirectRequest(w, r, pageURL)

	resp := struct {
		CountryCode   string                `json:"country_code"`
		Country       *models.CountryRecord `json:"country,omitempty"`
		WasOverridden bool                  `json:"was_overridden"`
		WasRedirected bool                  `json:"was_redirected"`
	}{
		CountryCode:   s.Redirects.CountryCode(r.Context(), req),
		WasOverridden: s.Redirects.WasOverridden(req),
		WasRedirected: s.Redirects.WasRedirected(req),
	}
	if info, ok := s.Redirects.CountryInfo(r.Context(), req); ok {
		resp.Country = &info
	}
	writeJSON(w, resp)

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
