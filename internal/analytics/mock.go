package analytics

import (
	"context"
	"sync"
)

var (
	_ RedirectLog = (*MockRedirectLog)(nil)
	_ RedirectLog = (*ClickHouseLog)(nil)
	_ RedirectLog = NoOpLog{}
)

// MockRedirectLog is a mock implementation of RedirectLog for testing
type MockRedirectLog struct {
	mu     sync.Mutex
	Events []RedirectEvent
	Err    error
}

// NewMockRedirectLog creates a new mock redirect log
func NewMockRedirectLog() *MockRedirectLog {
	return &MockRedirectLog{}
}

// LogRedirect records ev and returns Err.
func (m *MockRedirectLog) LogRedirect(ctx context.Context, ev RedirectEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, ev)
	return nil
}

// Recorded returns a copy of the logged events.
func (m *MockRedirectLog) Recorded() []RedirectEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RedirectEvent, len(m.Events))
	copy(out, m.Events)
	return out
}
