package session

import (
	"net/http"
	"strings"
	"time"
)

// flashPrefix namespaces flash cookies so they cannot collide with regular
// cookies of the same name.
const flashPrefix = "flash_"

// HTTPStore backs a Store with request cookies and Set-Cookie response
// headers. Writes are mirrored into an in-request jar so later reads observe
// them before the response is sent.
type HTTPStore struct {
	w       http.ResponseWriter
	r       *http.Request
	jar     map[string]*string
	flashes map[string]bool
	secure  bool
}

// NewHTTPStore wraps the request and response of a single exchange.
func NewHTTPStore(w http.ResponseWriter, r *http.Request) *HTTPStore {
	s := &HTTPStore{
		w:       w,
		r:       r,
		jar:     make(map[string]*string),
		flashes: make(map[string]bool),
		secure:  r.TLS != nil,
	}
	// Flashes from the previous request are read once and expired.
	for _, c := range r.Cookies() {
		if name, ok := strings.CutPrefix(c.Name, flashPrefix); ok && name != "" {
			s.flashes[name] = true
			s.write(c.Name, "", time.Unix(0, 0), -1)
		}
	}
	return s
}

// Cookie implements Store.
func (s *HTTPStore) Cookie(name string) (string, bool) {
	if v, ok := s.jar[name]; ok {
		if v == nil {
			return "", false
		}
		return *v, *v != ""
	}
	c, err := s.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// SetCookie implements Store.
func (s *HTTPStore) SetCookie(name, value string, expires time.Time) {
	v := value
	s.jar[name] = &v
	s.write(name, value, expires, 0)
}

// ClearCookie implements Store.
func (s *HTTPStore) ClearCookie(name string) {
	s.jar[name] = nil
	s.write(name, "", time.Unix(0, 0), -1)
}

// SetFlash implements Store.
func (s *HTTPStore) SetFlash(name string) {
	s.write(flashPrefix+name, "1", time.Time{}, 0)
}

// HasFlash implements Store.
func (s *HTTPStore) HasFlash(name string) bool {
	return s.flashes[name]
}

func (s *HTTPStore) write(name, value string, expires time.Time, maxAge int) {
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
