// Command query_redirects prints the redirects logged for one visitor IP,
// newest first, as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/patrickwarner/countryredirect/internal/analytics"
	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/observability"
)

func main() {
	logger, err := observability.InitLoggerWithService("query-redirects")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var ip, dsn string
	var limit int
	flag.StringVar(&ip, "ip", "", "visitor IP address")
	flag.StringVar(&dsn, "dsn", "", "ClickHouse DSN")
	flag.IntVar(&limit, "limit", 50, "maximum rows")
	flag.Parse()

	if ip == "" {
		fmt.Fprintln(os.Stderr, "ip required")
		os.Exit(1)
	}
	if dsn == "" {
		dsn = config.Load().ClickHouseDSN
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := analytics.InitClickHouse(ctx, dsn, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	events, err := a.RedirectsByIP(ctx, ip, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query redirects: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		fmt.Fprintf(os.Stderr, "encode redirects: %v\n", err)
		os.Exit(1)
	}
}
