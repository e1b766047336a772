// Package reporting summarises the redirect log stored in ClickHouse:
// daily totals, the countries driving redirects and the busiest site routes.
package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MaxDays bounds the reporting window.
const MaxDays = 365

// DailyRedirects is the redirect volume of one day.
type DailyRedirects struct {
	Date      time.Time `json:"date"`
	Redirects int64     `json:"redirects"`
	Visitors  int64     `json:"visitors"` // distinct IP addresses
}

// CountryRedirects is the redirect volume attributed to one country.
type CountryRedirects struct {
	CountryCode string  `json:"country_code"`
	Redirects   int64   `json:"redirects"`
	Share       float64 `json:"share"` // percentage of all redirects (0-100)
}

// RouteRedirects counts redirects from one site to one destination.
type RouteRedirects struct {
	FromSite  string `json:"from_site"`
	ToSite    string `json:"to_site"`
	Redirects int64  `json:"redirects"`
}

// RedirectSummary is the full report for a window of days.
type RedirectSummary struct {
	Days      int                `json:"days"`
	Total     int64              `json:"total"`
	Daily     []DailyRedirects   `json:"daily"`
	Countries []CountryRedirects `json:"countries"`
	Routes    []RouteRedirects   `json:"routes"`
}

// ClampDays keeps days within 1..MaxDays.
func ClampDays(days int) int {
	if days < 1 {
		return 1
	}
	if days > MaxDays {
		return MaxDays
	}
	return days
}

// GenerateRedirectReport queries the redirects table for the last days days.
// limit caps the country and route breakdowns.
func GenerateRedirectReport(ctx context.Context, db *sql.DB, days, limit int) (*RedirectSummary, error) {
	days = ClampDays(days)
	if limit <= 0 {
		limit = 10
	}

	daily, err := getDailyRedirects(ctx, db, days)
	if err != nil {
		return nil, fmt.Errorf("get daily redirects: %w", err)
	}
	countries, err := getCountryRedirects(ctx, db, days, limit)
	if err != nil {
		return nil, fmt.Errorf("get country redirects: %w", err)
	}
	routes, err := getRouteRedirects(ctx, db, days, limit)
	if err != nil {
		return nil, fmt.Errorf("get route redirects: %w", err)
	}
	return summarize(days, daily, countries, routes), nil
}

// summarize totals the daily rows and fills in each country's share.
func summarize(days int, daily []DailyRedirects, countries []CountryRedirects, routes []RouteRedirects) *RedirectSummary {
	s := &RedirectSummary{Days: days, Daily: daily, Countries: countries, Routes: routes}
	for _, d := range daily {
		s.Total += d.Redirects
	}
	if s.Total > 0 {
		for i := range s.Countries {
			s.Countries[i].Share = float64(s.Countries[i].Redirects) / float64(s.Total) * 100
		}
	}
	return s
}

func getDailyRedirects(ctx context.Context, db *sql.DB, days int) ([]DailyRedirects, error) {
	query := `
		SELECT
			toDate(timestamp) as date,
			count() as redirects,
			uniqExact(ip_address) as visitors
		FROM redirects
		WHERE timestamp >= now() - INTERVAL ? DAY
		GROUP BY date
		ORDER BY date DESC`

	rows, err := db.QueryContext(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("query daily redirects: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []DailyRedirects
	for rows.Next() {
		var d DailyRedirects
		if err := rows.Scan(&d.Date, &d.Redirects, &d.Visitors); err != nil {
			return nil, fmt.Errorf("scan daily redirects: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func getCountryRedirects(ctx context.Context, db *sql.DB, days, limit int) ([]CountryRedirects, error) {
	query := `
		SELECT
			country_code,
			count() as redirects
		FROM redirects
		WHERE timestamp >= now() - INTERVAL ? DAY
		GROUP BY country_code
		ORDER BY redirects DESC
		LIMIT ?`

	rows, err := db.QueryContext(ctx, query, days, limit)
	if err != nil {
		return nil, fmt.Errorf("query country redirects: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []CountryRedirects
	for rows.Next() {
		var c CountryRedirects
		if err := rows.Scan(&c.CountryCode, &c.Redirects); err != nil {
			return nil, fmt.Errorf("scan country redirects: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func getRouteRedirects(ctx context.Context, db *sql.DB, days, limit int) ([]RouteRedirects, error) {
	query := `
		SELECT
			from_site,
			to_site,
			count() as redirects
		FROM redirects
		WHERE timestamp >= now() - INTERVAL ? DAY
		GROUP BY from_site, to_site
		ORDER BY redirects DESC
		LIMIT ?`

	rows, err := db.QueryContext(ctx, query, days, limit)
	if err != nil {
		return nil, fmt.Errorf("query route redirects: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []RouteRedirects
	for rows.Next() {
		var r RouteRedirects
		if err := rows.Scan(&r.FromSite, &r.ToSite, &r.Redirects); err != nil {
			return nil, fmt.Errorf("scan route redirects: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
