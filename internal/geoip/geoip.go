package geoip

import (
	"encoding/json"
	"errors"
	"net"
	"os"

	"github.com/oschwald/geoip2-golang"

	"github.com/patrickwarner/countryredirect/internal/models"
)

// ErrNotFound is returned when an IP has no country in the database.
var ErrNotFound = errors.New("geoip: address not found")

// Database resolves an IP address to a country record.
type Database interface {
	Lookup(ip net.IP) (models.CountryRecord, error)
}

// GeoIP provides country lookup using a MaxMind DB or a JSON fallback.
type GeoIP struct {
	db       *geoip2.Reader
	fallback []record
}

type record struct {
	net     *net.IPNet
	country models.CountryRecord
}

// Init opens the GeoIP2 database located at path. When the file is not a
// MaxMind database it is parsed as a JSON list of {net, country, name}
// ranges, which keeps local development free of licensed data.
func Init(path string) (*GeoIP, error) {
	g := &GeoIP{}
	db, err := geoip2.Open(path)
	if err == nil {
		g.db = db
		return g, nil
	}

	data, jerr := os.ReadFile(path)
	if jerr != nil {
		return nil, err
	}
	var entries []struct {
		Net     string `json:"net"`
		Country string `json:"country"`
		Name    string `json:"name"`
	}
	if jerr = json.Unmarshal(data, &entries); jerr != nil {
		return nil, err
	}
	for _, e := range entries {
		if _, n, perr := net.ParseCIDR(e.Net); perr == nil {
			g.fallback = append(g.fallback, record{net: n, country: models.CountryRecord{IsoCode: e.Country, Name: e.Name}})
		}
	}
	return g, nil
}

// Lookup returns the country record for ip, or ErrNotFound. Database read
// errors are returned as is.
func (g *GeoIP) Lookup(ip net.IP) (models.CountryRecord, error) {
	if g == nil || ip == nil {
		return models.CountryRecord{}, ErrNotFound
	}
	if g.db != nil {
		rec, err := g.db.Country(ip)
		if err != nil {
			return models.CountryRecord{}, err
		}
		if rec.Country.IsoCode == "" {
			return models.CountryRecord{}, ErrNotFound
		}
		return models.CountryRecord{IsoCode: rec.Country.IsoCode, Name: rec.Country.Names["en"]}, nil
	}
	for _, r := range g.fallback {
		if r.net.Contains(ip) {
			return r.country, nil
		}
	}
	return models.CountryRecord{}, ErrNotFound
}

// Close releases resources associated with the database.
func (g *GeoIP) Close() error {
	if g != nil && g.db != nil {
		return g.db.Close()
	}
	return nil
}
