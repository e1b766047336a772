// Redirect Report Tool prints a summary of the redirect log.
//
// It connects directly to ClickHouse and reports redirect volume per day, the
// countries driving redirects and the busiest site routes.
//
// Usage:
//
//	go run ./tools/redirect_report -days=30 -limit=10
//
// Configuration:
//
//	-days: Optional. Number of days to include in the report (default: 7)
//	-limit: Optional. Rows in the country and route breakdowns (default: 10)
//	-clickhouse-dsn: Optional. ClickHouse connection string (default: tcp://localhost:9000)
//	-json: Optional. Print the report as JSON
//
// Environment Variables:
//
//	CLICKHOUSE_DSN: ClickHouse connection string (overridden by -clickhouse-dsn flag)
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/patrickwarner/countryredirect/internal/reporting"
)

func main() {
	var (
		days    = flag.Int("days", 7, "Number of days to include in report")
		limit   = flag.Int("limit", 10, "Rows per breakdown")
		dsn     = flag.String("clickhouse-dsn", getEnv("CLICKHOUSE_DSN", "tcp://localhost:9000"), "ClickHouse DSN")
		asJSON  = flag.Bool("json", false, "Print JSON instead of a table")
		timeout = flag.Duration("timeout", 30*time.Second, "Query timeout")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("clickhouse", *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to ClickHouse: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", err)
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error pinging ClickHouse: %v\n", err)
		os.Exit(1)
	}

	summary, err := reporting.GenerateRedirectReport(ctx, db, *days, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printRedirectReport(summary)
}

func printRedirectReport(s *reporting.RedirectSummary) {
	const rule = "───────────────────────────────────────────────────────────────"
	fmt.Printf("REDIRECT REPORT\n%s\n", rule)
	fmt.Printf("Report Period: %d days (ending %s)\n", s.Days, time.Now().Format("2006-01-02"))
	fmt.Printf("Total Redirects: %s\n\n", formatNumber(s.Total))

	if len(s.Daily) > 0 {
		fmt.Printf("DAILY\n%s\n", rule)
		fmt.Printf("Date       | Redirects | Visitors\n")
		fmt.Printf("-----------|-----------|---------\n")
		for _, d := range s.Daily {
			fmt.Printf("%-10s | %9s | %8s\n", d.Date.Format("2006-01-02"), formatNumber(d.Redirects), formatNumber(d.Visitors))
		}
		fmt.Println()
	}

	if len(s.Countries) > 0 {
		fmt.Printf("COUNTRIES\n%s\n", rule)
		fmt.Printf("Country | Redirects |  Share\n")
		fmt.Printf("--------|-----------|-------\n")
		for _, c := range s.Countries {
			fmt.Printf("%-7s | %9s | %5.1f%%\n", c.CountryCode, formatNumber(c.Redirects), c.Share)
		}
		fmt.Println()
	}

	if len(s.Routes) > 0 {
		fmt.Printf("ROUTES\n%s\n", rule)
		for _, r := range s.Routes {
			fmt.Printf("%-20s -> %-30s %9s\n", r.FromSite, r.ToSite, formatNumber(r.Redirects))
		}
		fmt.Println()
	}

	if s.Total == 0 {
		fmt.Printf("No redirects recorded. Is enableLogging set in the settings file?\n")
	}
}

// formatNumber formats integers with comma separators, 1234567 as "1,234,567".
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}
	result := ""
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(digit)
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
