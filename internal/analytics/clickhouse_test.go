package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClickHouseLogUnavailable(t *testing.T) {
	var l *ClickHouseLog
	err := l.LogRedirect(context.Background(), RedirectEvent{ID: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, l.Close())

	err = (&ClickHouseLog{}).LogRedirect(context.Background(), RedirectEvent{})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = l.RedirectsByIP(context.Background(), "203.0.113.1", 10)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMockRedirectLog(t *testing.T) {
	m := NewMockRedirectLog()
	require.NoError(t, m.LogRedirect(context.Background(), RedirectEvent{ID: "a", ToSite: "fr"}))

	m.Err = errors.New("boom")
	assert.Error(t, m.LogRedirect(context.Background(), RedirectEvent{ID: "b"}))

	got := m.Recorded()
	require.Len(t, got, 1)
	assert.Equal(t, "fr", got[0].ToSite)
}
