// Command traffic_simulator sends simulated visitor page views to the
// redirect server and reports how many were redirected.
//
// Visitors are drawn from a pool of IP addresses, user agents and
// Accept-Language headers; the IP is passed in X-Forwarded-For so the server
// geolocates it. Redirects are not followed.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/patrickwarner/countryredirect/internal/config"
	"github.com/patrickwarner/countryredirect/internal/db"
	"github.com/patrickwarner/countryredirect/internal/observability"
)

var (
	server    string
	pathsCSV  string
	ipsCSV    string
	totalReq  int
	conc      int
	duration  time.Duration
	rate      float64
	botRate   float64
	stats     bool
	flush     bool
	redisAddr string
	debug     bool
	label     string
	jitter    float64
)

var logger *zap.Logger

var httpClient *http.Client

var (
	userAgents = []string{
		"Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Linux; Android 12; Pixel 6 Pro) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.5735.196 Mobile Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_3_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Safari/605.1.15",
		"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:111.0) Gecko/20100101 Firefox/111.0",
	}
	botAgents = []string{
		"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		"Mozilla/5.0 (compatible; bingbot/2.0; +http://www.bing.com/bingbot.htm)",
	}
	acceptLanguages = []string{
		"en-US,en;q=0.9",
		"en-GB,en;q=0.8",
		"fr-FR,fr;q=0.9,en;q=0.5",
		"de-CH,de;q=0.9,fr-CH;q=0.6",
		"fr-CH,fr;q=0.9",
		"",
	}
	// public addresses of a few countries, as found in GeoLite2
	defaultIPs = "8.8.8.8,81.2.69.142,2.125.160.216,89.160.20.112,175.16.199.1"
)

const statsInterval = 5 * time.Second

var (
	countSent       uint64
	countRedirected uint64
	countStayed     uint64
	countLimited    uint64
	countErrors     uint64
)

func main() {
	flag.StringVar(&server, "server", "http://localhost:8787", "redirect server base URL")
	flag.StringVar(&pathsCSV, "paths", "/,/about,/blog", "comma-separated page paths")
	flag.StringVar(&ipsCSV, "ips", defaultIPs, "comma-separated visitor IPs")
	flag.IntVar(&totalReq, "requests", 1000, "total requests to send")
	flag.IntVar(&conc, "concurrency", 20, "concurrent requests")
	flag.DurationVar(&duration, "duration", 0, "how long to run traffic (0 to disable)")
	flag.Float64Var(&rate, "rate", 0, "requests per second (0 for unlimited)")
	flag.Float64Var(&botRate, "bot-rate", 0.1, "probability a visitor is a crawler")
	flag.BoolVar(&stats, "stats", false, "print aggregated stats periodically")
	flag.BoolVar(&flush, "flush", false, "flush the geo lookup cache in redis before sending traffic")
	flag.StringVar(&redisAddr, "redis", "", "redis address (defaults to REDIS_ADDR)")
	flag.BoolVar(&debug, "debug", false, "enable verbose debug logs")
	flag.StringVar(&label, "label", "", "label to identify this run")
	flag.Float64Var(&jitter, "jitter", 0.0, "random jitter factor for request spacing")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	var err error
	logger, err = observability.InitLoggerWithLevel(level, "traffic-simulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	httpClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			MaxConnsPerHost:       50,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	if label == "" {
		label = time.Now().Format(time.RFC3339)
	}

	if flush {
		flushGeoCache()
	}

	paths := splitCSV(pathsCSV)
	ips := splitCSV(ipsCSV)
	if len(paths) == 0 || len(ips) == 0 {
		logger.Fatal("paths and ips must not be empty")
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	var rmu sync.Mutex
	pick := func(list []string) string {
		rmu.Lock()
		defer rmu.Unlock()
		return list[r.Intn(len(list))]
	}
	chance := func(p float64) bool {
		rmu.Lock()
		defer rmu.Unlock()
		return r.Float64() < p
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, conc)
	done := make(chan struct{})

	var baseInterval time.Duration
	if rate > 0 {
		baseInterval = time.Duration(float64(time.Second) / rate)
	} else if duration > 0 && totalReq > 0 {
		baseInterval = duration / time.Duration(totalReq)
	}

	if stats {
		go func() {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					printStats()
				case <-done:
					return
				}
			}
		}()
	}

	logger.Info("starting traffic",
		zap.String("label", label),
		zap.String("server", server),
		zap.Int("requests", totalReq),
		zap.Int("concurrency", conc))

	start := time.Now()
	next := start
	for i := 0; ; i++ {
		if totalReq > 0 && i >= totalReq {
			break
		}
		if duration > 0 && time.Since(start) >= duration {
			break
		}
		if baseInterval > 0 {
			effective := baseInterval
			if jitter > 0 {
				rmu.Lock()
				jf := 1 + (r.Float64()*2-1)*jitter
				rmu.Unlock()
				if jf < 0.1 {
					jf = 0.1
				}
				effective = time.Duration(float64(effective) * jf)
			}
			if now := time.Now(); now.Before(next) {
				time.Sleep(next.Sub(now))
			}
			next = next.Add(effective)
		}

		ua := pick(userAgents)
		if chance(botRate) {
			ua = pick(botAgents)
		}
		v := visit{
			path:     pick(paths),
			ip:       pick(ips),
			ua:       ua,
			language: pick(acceptLanguages),
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(v visit) {
			defer wg.Done()
			defer func() { <-sem }()
			send(context.Background(), v)
		}(v)
	}

	wg.Wait()
	close(done)
	printStats()
	logger.Info("traffic finished", zap.String("label", label), zap.Duration("elapsed", time.Since(start)))
}

type visit struct {
	path     string
	ip       string
	ua       string
	language string
}

func send(ctx context.Context, v visit) {
	atomic.AddUint64(&countSent, 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(server, "/")+v.path, nil)
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("build request", zap.Error(err))
		return
	}
	req.Header.Set("X-Forwarded-For", v.ip)
	req.Header.Set("User-Agent", v.ua)
	if v.language != "" {
		req.Header.Set("Accept-Language", v.language)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Debug("request failed", zap.Error(err))
		return
	}
	_ = resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusFound:
		atomic.AddUint64(&countRedirected, 1)
		logger.Debug("redirected",
			zap.String("ip", v.ip),
			zap.String("path", v.path),
			zap.String("location", resp.Header.Get("Location")))
	case http.StatusOK:
		atomic.AddUint64(&countStayed, 1)
	case http.StatusTooManyRequests:
		atomic.AddUint64(&countLimited, 1)
	default:
		atomic.AddUint64(&countErrors, 1)
		logger.Debug("unexpected status", zap.Int("status", resp.StatusCode))
	}
}

// flushGeoCache removes cached geo lookups so the run exercises the
// database again.
func flushGeoCache() {
	cfg := config.Load()
	addr := redisAddr
	if addr == "" {
		addr = cfg.RedisAddr
	}
	if addr == "" {
		logger.Warn("no redis address, skipping flush")
		return
	}
	ctx := context.Background()
	store, err := db.InitRedis(ctx, addr)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer store.Close()

	var deleted int
	iter := store.Client.Scan(ctx, 0, cfg.GeoCacheNamespace+"-*", 500).Iterator()
	for iter.Next(ctx) {
		if err := store.Client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Error("failed to delete key", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		logger.Error("scan geo cache", zap.Error(err))
	}
	logger.Info("geo cache flushed", zap.String("addr", addr), zap.Int("keys_deleted", deleted))
}

func printStats() {
	sent := atomic.LoadUint64(&countSent)
	redirected := atomic.LoadUint64(&countRedirected)
	pct := 0.0
	if sent > 0 {
		pct = float64(redirected) / float64(sent) * 100
	}
	logger.Info("stats",
		zap.String("label", label),
		zap.Uint64("sent", sent),
		zap.Uint64("redirected", redirected),
		zap.Uint64("stayed", atomic.LoadUint64(&countStayed)),
		zap.Uint64("rate_limited", atomic.LoadUint64(&countLimited)),
		zap.Uint64("errors", atomic.LoadUint64(&countErrors)),
		zap.Float64("redirect_pct", pct))
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
