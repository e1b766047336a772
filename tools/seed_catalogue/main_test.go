package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/models"
)

func TestGeneratePages(t *testing.T) {
	sites := []models.Site{
		{ID: 1, Handle: "en", BaseURL: "https://example.com/"},
		{ID: 2, Handle: "fr", BaseURL: "https://example.com/fr"},
		{ID: 3, Handle: "draft"},
	}

	pages := generatePages(sites, 2, 500)

	require.Len(t, pages, 4)
	assert.Equal(t, models.Element{ID: 500, Type: "entry", SiteID: 1, URI: "page-1", URL: "https://example.com/page-1"}, pages[0])
	assert.Equal(t, models.Element{ID: 500, Type: "entry", SiteID: 2, URI: "page-1", URL: "https://example.com/fr/page-1"}, pages[1])
	assert.Equal(t, 501, pages[3].ID)
	assert.Empty(t, generatePages(sites, 0, 500))
}

func TestCallReloadEndpoint(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	require.NoError(t, callReloadEndpoint(context.Background(), config.Config{Port: u.Port()}))
	assert.Equal(t, http.MethodPost, method)
}
