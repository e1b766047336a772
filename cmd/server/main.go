package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/countryredirect/internal/analytics"
	"github.com/patrickwarner/countryredirect/internal/api"
	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/db"
	"github.com/patrickwarner/countryredirect/internal/geoip"
	"github.com/patrickwarner/countryredirect/internal/models"
	"github.com/patrickwarner/countryredirect/internal/observability"
	"github.com/patrickwarner/countryredirect/internal/redirect"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	// Sites come from the settings file unless Postgres is configured, in
	// which case the settings seed the tables and Postgres is authoritative.
	catalogue := models.NewInMemoryCatalogue(settings.Sites, settings.Elements)
	var pg *db.Postgres
	if cfg.PostgresDSN != "" {
		pg, err = db.InitPostgres(ctx, cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
		if err != nil {
			return fmt.Errorf("failed to connect postgres: %w", err)
		}
		defer pg.Close()

		if err := pg.Seed(ctx, settings.Sites, settings.Elements); err != nil {
			return fmt.Errorf("seed catalogue: %w", err)
		}
	}

	var geoStore geoip.Store
	if cfg.RedisAddr != "" {
		store, err := db.InitRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer store.Close()
		geoStore = store
	} else {
		geoStore = db.NewLRUStore(cfg.GeoCacheSize, cfg.GeoCacheTTL)
	}

	var geoDB geoip.Database
	geoSvc, err := geoip.Init(cfg.GeoIPDB)
	if err != nil {
		// every visitor resolves to the wildcard country
		logger.Warn("geoip database unavailable", zap.String("path", cfg.GeoIPDB), zap.Error(err))
	} else {
		defer func() { _ = geoSvc.Close() }()
		geoDB = geoSvc
	}
	geoCache := geoip.NewCache(geoDB, geoStore, geoip.CacheOptions{
		Namespace: cfg.GeoCacheNamespace,
		TTL:       cfg.GeoCacheTTL,
		Timeout:   cfg.GeoLookupTimeout,
	}, logger, metricsRegistry)

	var (
		redirectLog analytics.RedirectLog = analytics.NoOpLog{}
		chLog       *analytics.ClickHouseLog
	)
	if settings.EnableLogging && cfg.ClickHouseDSN != "" {
		chLog, err = analytics.InitClickHouse(ctx, cfg.ClickHouseDSN, logger)
		if err != nil {
			return fmt.Errorf("failed to connect clickhouse: %w", err)
		}
		defer func() { _ = chLog.Close() }()
		redirectLog = chLog
	}

	svc := redirect.New(redirect.Options{
		Settings: settings,
		Sites:    catalogue,
		Elements: catalogue,
		Geo:      geoCache,
		Log:      redirectLog,
		Logger:   logger,
		Metrics:  metricsRegistry,
	})

	srvDeps := api.NewServer(logger, svc, catalogue, pg, metricsRegistry, cfg)
	if chLog != nil {
		srvDeps.Analytics = chLog.DB
	}
	if pg != nil {
		if err := srvDeps.Reload(ctx); err != nil {
			return fmt.Errorf("load catalogue: %w", err)
		}
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(srvDeps.Router(), cfg.ServiceName),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Country redirect server running",
		zap.String("addr", addr),
		zap.Bool("enabled", settings.Enabled),
		zap.Int("countries", settings.CountryMap.Len()))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	if pg != nil && cfg.ReloadInterval > 0 {
		ticker := time.NewTicker(cfg.ReloadInterval)
		go func() {
			for {
				select {
				case <-ticker.C:
					if err := srvDeps.Reload(ctx); err != nil {
						logger.Error("auto reload", zap.Error(err))
					}
				case <-ctx.Done():
					ticker.Stop()
					return
				}
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
