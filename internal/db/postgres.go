package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/patrickwarner/countryredirect/internal/models"
)

// Postgres wraps a postgres DB connection holding the site and element
// catalogue.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS sites (
    id SERIAL PRIMARY KEY,
    handle TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    base_url TEXT NOT NULL DEFAULT '',
    language TEXT NOT NULL DEFAULT '',
    is_primary BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS elements (
    id INT NOT NULL,
    type TEXT NOT NULL,
    site_id INT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
    uri TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (id, type, site_id)
);

CREATE INDEX IF NOT EXISTS idx_elements_site_uri ON elements (site_id, uri);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(ctx context.Context, dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// LoadSites returns all sites ordered by id.
func (p *Postgres) LoadSites(ctx context.Context) ([]models.Site, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT id, handle, name, base_url, language, is_primary FROM sites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sites []models.Site
	for rows.Next() {
		var s models.Site
		if err := rows.Scan(&s.ID, &s.Handle, &s.Name, &s.BaseURL, &s.Language, &s.Primary); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// LoadElements returns every element rendering.
func (p *Postgres) LoadElements(ctx context.Context) ([]models.Element, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT id, type, site_id, uri, url FROM elements`)
	if err != nil {
		return nil, fmt.Errorf("query elements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var elements []models.Element
	for rows.Next() {
		var e models.Element
		if err := rows.Scan(&e.ID, &e.Type, &e.SiteID, &e.URI, &e.URL); err != nil {
			return nil, fmt.Errorf("scan element: %w", err)
		}
		elements = append(elements, e)
	}
	return elements, rows.Err()
}

// AllSites implements models.SiteCatalogue.
func (p *Postgres) AllSites(ctx context.Context) ([]models.Site, error) {
	return p.LoadSites(ctx)
}

// SiteByHandle implements models.SiteCatalogue.
func (p *Postgres) SiteByHandle(ctx context.Context, handle string) (models.Site, error) {
	var s models.Site
	err := p.DB.QueryRowContext(ctx,
		`SELECT id, handle, name, base_url, language, is_primary FROM sites WHERE handle = $1`, handle).
		Scan(&s.ID, &s.Handle, &s.Name, &s.BaseURL, &s.Language, &s.Primary)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Site{}, models.ErrNotFound
	}
	if err != nil {
		return models.Site{}, fmt.Errorf("query site %q: %w", handle, err)
	}
	return s, nil
}

// SiteForURL implements models.SiteCatalogue.
func (p *Postgres) SiteForURL(ctx context.Context, rawURL string) (models.Site, error) {
	sites, err := p.LoadSites(ctx)
	if err != nil {
		return models.Site{}, err
	}
	if s, ok := models.MatchSiteURL(sites, rawURL); ok {
		return s, nil
	}
	return models.Site{}, models.ErrNotFound
}

// ElementForURI implements models.ElementCatalogue.
func (p *Postgres) ElementForURI(ctx context.Context, siteID int, uri string) (models.Element, error) {
	return p.scanElement(ctx,
		`SELECT id, type, site_id, uri, url FROM elements WHERE site_id = $1 AND uri = $2`,
		siteID, trimSlashes(uri))
}

// LocaleVariant implements models.ElementCatalogue.
func (p *Postgres) LocaleVariant(ctx context.Context, ref models.ElementRef, siteID int) (models.Element, error) {
	return p.scanElement(ctx,
		`SELECT id, type, site_id, uri, url FROM elements WHERE id = $1 AND type = $2 AND site_id = $3`,
		ref.ID, ref.Type, siteID)
}

func (p *Postgres) scanElement(ctx context.Context, query string, args ...any) (models.Element, error) {
	var e models.Element
	err := p.DB.QueryRowContext(ctx, query, args...).Scan(&e.ID, &e.Type, &e.SiteID, &e.URI, &e.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Element{}, models.ErrNotFound
	}
	if err != nil {
		return models.Element{}, fmt.Errorf("query element: %w", err)
	}
	return e, nil
}

// UpsertSite inserts or updates a site by handle and sets its id.
func (p *Postgres) UpsertSite(ctx context.Context, s *models.Site) error {
	return p.DB.QueryRowContext(ctx,
		`INSERT INTO sites (handle, name, base_url, language, is_primary) VALUES ($1,$2,$3,$4,$5)
         ON CONFLICT (handle) DO UPDATE SET name = EXCLUDED.name, base_url = EXCLUDED.base_url,
         language = EXCLUDED.language, is_primary = EXCLUDED.is_primary
         RETURNING id`,
		s.Handle, s.Name, s.BaseURL, s.Language, s.Primary).Scan(&s.ID)
}

// UpsertElement inserts or updates one element rendering.
func (p *Postgres) UpsertElement(ctx context.Context, e models.Element) error {
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO elements (id, type, site_id, uri, url) VALUES ($1,$2,$3,$4,$5)
         ON CONFLICT (id, type, site_id) DO UPDATE SET uri = EXCLUDED.uri, url = EXCLUDED.url`,
		e.ID, e.Type, e.SiteID, trimSlashes(e.URI), e.URL)
	return err
}

// Seed upserts sites and elements, typically those of the settings file.
// Element site ids refer to the ids in sites and are remapped to the ids
// Postgres assigns.
func (p *Postgres) Seed(ctx context.Context, sites []models.Site, elements []models.Element) error {
	ids := make(map[int]int, len(sites))
	for _, s := range sites {
		oldID := s.ID
		if err := p.UpsertSite(ctx, &s); err != nil {
			return fmt.Errorf("upsert site %q: %w", s.Handle, err)
		}
		ids[oldID] = s.ID
	}
	for _, e := range elements {
		id, ok := ids[e.SiteID]
		if !ok {
			continue
		}
		e.SiteID = id
		if err := p.UpsertElement(ctx, e); err != nil {
			return fmt.Errorf("upsert element %d: %w", e.ID, err)
		}
	}
	return nil
}

func trimSlashes(uri string) string {
	return strings.Trim(uri, "/")
}
