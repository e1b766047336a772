package session

import (
	"sync"
	"time"
)

// MemoryStore is an in-process Store. It is used by tests and by callers that
// evaluate decisions without a browser round trip.
type MemoryStore struct {
	mu       sync.Mutex
	cookies  map[string]string
	expires  map[string]time.Time
	incoming map[string]bool
	outgoing map[string]bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cookies:  make(map[string]string),
		expires:  make(map[string]time.Time),
		incoming: make(map[string]bool),
		outgoing: make(map[string]bool),
	}
}

// Cookie implements Store.
func (m *MemoryStore) Cookie(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.cookies[name]
	return v, ok && v != ""
}

// SetCookie implements Store.
func (m *MemoryStore) SetCookie(name, value string, expires time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookies[name] = value
	m.expires[name] = expires
}

// ClearCookie implements Store.
func (m *MemoryStore) ClearCookie(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cookies, name)
	delete(m.expires, name)
}

// Expiry returns when the named cookie was set to expire.
func (m *MemoryStore) Expiry(name string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.expires[name]
	return t, ok
}

// SetFlash implements Store.
func (m *MemoryStore) SetFlash(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outgoing[name] = true
}

// HasFlash implements Store.
func (m *MemoryStore) HasFlash(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.incoming[name]
}

// Flashed reports whether name was flashed during the current request.
func (m *MemoryStore) Flashed(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outgoing[name]
}

// NextRequest simulates the following request of the same visitor: flashes
// set now become readable and the previous ones are dropped.
func (m *MemoryStore) NextRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incoming = m.outgoing
	m.outgoing = make(map[string]bool)
}
