package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/countryredirect/internal/middleware"
	"github.com/patrickwarner/countryredirect/internal/models"
	"github.com/patrickwarner/countryredirect/internal/observability"
)

// RedirectMiddleware runs the redirect decision for page requests and answers
// with 302 when the visitor belongs on another site.
func (s *Server) RedirectMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		const endpoint = "page"

		req := s.newRedirectRequest(w, r, requestURL(r))
		out := s.Redirects.OnRequest(r.Context(), req)

		if out.RedirectTo == "" {
			next.ServeHTTP(w, r.WithContext(withRedirectRequest(r.Context(), req)))
			return
		}

		if observability.ShouldSample(observability.GetSamplingRate()) {
			middleware.LoggerFromRequest(r, s.Logger).Info("redirect",
				zap.String("country", req.CountryCode),
				zap.String("location", out.RedirectTo))
		}
		http.Redirect(w, r, out.RedirectTo, http.StatusFound)
		s.Metrics.IncrementRequests(endpoint, r.Method, strconv.Itoa(http.StatusFound))
		s.Metrics.RecordRequestLatency(endpoint, r.Method, time.Since(start))
	})
}

// PageHandler stands in for the CMS behind the middleware. It reports what
// the redirect layer knows about the page.
func (s *Server) PageHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "page"

	req, ok := redirectRequestFrom(r.Context())
	if !ok {
		req = s.newRedirectRequest(w, r, requestURL(r))
	}

	resp := struct {
		Site          string          `json:"site"`
		URI           string          `json:"uri"`
		Element       *models.Element `json:"element,omitempty"`
		Country       string          `json:"country"`
		HaltedBy      string          `json:"halted_by,omitempty"`
		WasRedirected bool            `json:"was_redirected"`
		Banner        *models.Banner  `json:"banner,omitempty"`
	}{
		Site:          req.CurrentSite.Handle,
		URI:           req.CurrentURI,
		Element:       req.Element,
		Country:       req.CountryCode,
		HaltedBy:      req.HaltedBy,
		WasRedirected: s.Redirects.WasRedirected(req),
		Banner:        s.Redirects.Banner(r.Context(), req, "", ""),
	}
	writeJSON(w, resp)

	s.Metrics.IncrementRequests(endpoint, r.Method, "200")
	s.Metrics.RecordRequestLatency(endpoint, r.Method, time.Since(start))
}
