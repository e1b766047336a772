// Command seed_catalogue loads the sites and elements of the settings file
// into Postgres, optionally padding every site with generated pages that are
// locale variants of each other, then asks the server to reload.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/db"
	"github.com/patrickwarner/countryredirect/internal/models"
	"github.com/patrickwarner/countryredirect/internal/observability"
)

var (
	settingsFile = flag.String("settings", "", "settings file (defaults to SETTINGS_FILE)")
	fakePages    = flag.Int("pages", 0, "generated pages per site")
	firstID      = flag.Int("first-id", 10000, "element id of the first generated page")
	skipReload   = flag.Bool("skip-reload", false, "skip automatic reload after seeding")
)

func main() {
	flag.Parse()

	logger, err := observability.InitLoggerWithService("seed-catalogue")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	path := *settingsFile
	if path == "" {
		path = cfg.SettingsFile
	}
	settings, err := config.LoadSettings(path)
	if err != nil {
		logger.Fatal("load settings", zap.Error(err))
	}
	if len(settings.Sites) == 0 {
		logger.Fatal("settings file has no sites", zap.String("path", path))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pg, err := db.InitPostgres(ctx, cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pg.Close()

	elements := append(settings.Elements, generatePages(settings.Sites, *fakePages, *firstID)...)
	if err := pg.Seed(ctx, settings.Sites, elements); err != nil {
		logger.Fatal("seed catalogue", zap.Error(err))
	}
	logger.Info("catalogue seeded",
		zap.Int("sites", len(settings.Sites)),
		zap.Int("elements", len(elements)))

	if !*skipReload {
		if err := callReloadEndpoint(ctx, cfg); err != nil {
			logger.Error("reload endpoint failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Warning: failed to reload server data: %v\n", err)
		} else {
			fmt.Println("server data reloaded")
		}
	}
}

// generatePages returns n pages per routable site. Page i has the same id in
// every site, so each one is a locale variant of the others.
func generatePages(sites []models.Site, n, firstID int) []models.Element {
	var out []models.Element
	for i := 0; i < n; i++ {
		for _, s := range sites {
			if s.BaseURL == "" {
				continue
			}
			uri := fmt.Sprintf("page-%d", i+1)
			out = append(out, models.Element{
				ID:     firstID + i,
				Type:   "entry",
				SiteID: s.ID,
				URI:    uri,
				URL:    strings.TrimRight(s.BaseURL, "/") + "/" + uri,
			})
		}
	}
	return out
}

func callReloadEndpoint(ctx context.Context, cfg config.Config) error {
	reloadURL := fmt.Sprintf("http://localhost:%s/reload", cfg.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reloadURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
