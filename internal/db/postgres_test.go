package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/countryredirect/internal/models"
)

// These tests need a disposable database; set TEST_POSTGRES_DSN to run them.
func setupTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	pg, err := InitPostgres(context.Background(), dsn, 2, 1, time.Minute, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pg.DB.Exec(`TRUNCATE elements, sites RESTART IDENTITY CASCADE`)
		pg.Close()
	})
	return pg
}

func TestPostgresSeedAndLoad(t *testing.T) {
	pg := setupTestPostgres(t)
	ctx := context.Background()

	err := pg.Seed(ctx,
		[]models.Site{
			{ID: 10, Handle: "en", Name: "English", BaseURL: "https://example.com/", Primary: true},
			{ID: 20, Handle: "fr", Name: "Français", BaseURL: "https://example.com/fr/"},
		},
		[]models.Element{
			{ID: 1, Type: "entry", SiteID: 10, URI: "/about/", URL: "https://example.com/about"},
			{ID: 1, Type: "entry", SiteID: 20, URI: "a-propos", URL: "https://example.com/fr/a-propos"},
			{ID: 2, Type: "entry", SiteID: 99, URI: "orphan"},
		})
	require.NoError(t, err)

	sites, err := pg.LoadSites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 2)

	elements, err := pg.LoadElements(ctx)
	require.NoError(t, err)
	assert.Len(t, elements, 2)

	fr, err := pg.SiteByHandle(ctx, "fr")
	require.NoError(t, err)

	en, err := pg.SiteForURL(ctx, "https://example.com/contact")
	require.NoError(t, err)
	assert.Equal(t, "en", en.Handle)

	about, err := pg.ElementForURI(ctx, en.ID, "about")
	require.NoError(t, err)

	variant, err := pg.LocaleVariant(ctx, about.Ref(), fr.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/fr/a-propos", variant.URL)

	_, err = pg.SiteByHandle(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
