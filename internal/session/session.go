// Package session provides the per-request cookie and flash state the redirect
// logic reads and writes. A Store lives for exactly one request.
package session

import "time"

// Store is the request scoped view of persisted visitor state.
type Store interface {
	// Cookie returns the cookie value, including values set earlier in the
	// same request.
	Cookie(name string) (string, bool)
	SetCookie(name, value string, expires time.Time)
	ClearCookie(name string)

	// SetFlash marks name for the next request only.
	SetFlash(name string)
	// HasFlash reports whether name was flashed by the previous request.
	HasFlash(name string) bool
}
