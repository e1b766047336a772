package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// ErrUnavailable is returned when the redirect log has no backing store.
var ErrUnavailable = fmt.Errorf("analytics unavailable")

// RedirectLog records redirects that were issued to visitors.
type RedirectLog interface {
	LogRedirect(ctx context.Context, ev RedirectEvent) error
}

// RedirectEvent mirrors a row in the redirects table.
type RedirectEvent struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	IPAddress   string    `json:"ip_address"`
	CountryCode string    `json:"country_code"`
	FromSite    string    `json:"from_site"`
	ToSite      string    `json:"to_site"`
	FromURI     string    `json:"from_uri"`
	ToURL       string    `json:"to_url"`
	UserAgent   string    `json:"user_agent"`
}

// ClickHouseLog writes redirect events to ClickHouse.
type ClickHouseLog struct {
	DB     *sql.DB
	logger *zap.Logger
}

// InitClickHouse connects to ClickHouse and ensures the redirects table exists.
func InitClickHouse(ctx context.Context, dsn string, logger *zap.Logger) (*ClickHouseLog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(10)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS redirects (
       id           UUID,
       timestamp    DateTime,
       ip_address   String,
       country_code LowCardinality(String),
       from_site    LowCardinality(String),
       to_site      String,
       from_uri     String,
       to_url       String,
       user_agent   String
   ) ENGINE=MergeTree() ORDER BY (country_code, timestamp)`
	if _, err := db.ExecContext(ctx, create); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	logger.Info("Connected to ClickHouse")
	return &ClickHouseLog{DB: db, logger: logger}, nil
}

// LogRedirect inserts ev into the redirects table.
func (l *ClickHouseLog) LogRedirect(ctx context.Context, ev RedirectEvent) error {
	if l == nil || l.DB == nil {
		return ErrUnavailable
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	stmt := `INSERT INTO redirects (id, timestamp, ip_address, country_code, from_site, to_site, from_uri, to_url, user_agent) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := l.DB.ExecContext(ctx, stmt, ev.ID, ev.Timestamp, ev.IPAddress, ev.CountryCode, ev.FromSite, ev.ToSite, ev.FromURI, ev.ToURL, ev.UserAgent); err != nil {
		l.logger.Error("clickhouse insert failed", zap.Error(err), zap.String("to_site", ev.ToSite))
		return fmt.Errorf("insert redirect event: %w", err)
	}
	return nil
}

// RedirectsByIP returns the latest redirects logged for ip, newest first.
func (l *ClickHouseLog) RedirectsByIP(ctx context.Context, ip string, limit int) ([]RedirectEvent, error) {
	if l == nil || l.DB == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT toString(id), timestamp, ip_address, country_code, from_site, to_site, from_uri, to_url, user_agent
		FROM redirects WHERE ip_address = ? ORDER BY timestamp DESC LIMIT ?`
	rows, err := l.DB.QueryContext(ctx, query, ip, limit)
	if err != nil {
		return nil, fmt.Errorf("query redirects: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []RedirectEvent
	for rows.Next() {
		var ev RedirectEvent
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.IPAddress, &ev.CountryCode, &ev.FromSite, &ev.ToSite, &ev.FromURI, &ev.ToURL, &ev.UserAgent); err != nil {
			return nil, fmt.Errorf("scan redirect: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close closes the connection.
func (l *ClickHouseLog) Close() error {
	if l == nil || l.DB == nil {
		return nil
	}
	return l.DB.Close()
}

// NoOpLog discards events.
type NoOpLog struct{}

func (NoOpLog) LogRedirect(ctx context.Context, ev RedirectEvent) error { return nil }
