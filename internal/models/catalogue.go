package models

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync/atomic"
)

// ErrNotFound is returned when a site or element does not exist.
var ErrNotFound = errors.New("entity not found")

// SiteCatalogue exposes the configured sites.
type SiteCatalogue interface {
	AllSites(ctx context.Context) ([]Site, error)
	// SiteByHandle returns ErrNotFound for unknown handles.
	SiteByHandle(ctx context.Context, handle string) (Site, error)
	// SiteForURL returns the site whose base URL is the longest prefix of rawURL.
	SiteForURL(ctx context.Context, rawURL string) (Site, error)
}

// ElementCatalogue resolves content elements and their locale variants.
type ElementCatalogue interface {
	// ElementForURI returns the element routed at uri in the given site.
	ElementForURI(ctx context.Context, siteID int, uri string) (Element, error)
	// LocaleVariant returns the rendering of ref in another site.
	LocaleVariant(ctx context.Context, ref ElementRef, siteID int) (Element, error)
}

type elementKey struct {
	siteID int
	uri    string
}

type variantKey struct {
	ref    ElementRef
	siteID int
}

// catalogueSnapshot is replaced wholesale on reload and never mutated.
type catalogueSnapshot struct {
	sites        []Site
	siteIndex    map[string]int
	elementIndex map[elementKey]Element
	variantIndex map[variantKey]Element
}

// InMemoryCatalogue implements SiteCatalogue and ElementCatalogue with atomic
// snapshot swaps, so reads on the request path never lock.
type InMemoryCatalogue struct {
	data atomic.Pointer[catalogueSnapshot]
}

// NewInMemoryCatalogue returns a catalogue holding sites and elements.
func NewInMemoryCatalogue(sites []Site, elements []Element) *InMemoryCatalogue {
	c := &InMemoryCatalogue{}
	c.ReloadAll(sites, elements)
	return c
}

// ReloadAll atomically replaces all sites and elements.
func (c *InMemoryCatalogue) ReloadAll(sites []Site, elements []Element) {
	snap := &catalogueSnapshot{
		sites:        make([]Site, len(sites)),
		siteIndex:    make(map[string]int, len(sites)),
		elementIndex: make(map[elementKey]Element, len(elements)),
		variantIndex: make(map[variantKey]Element, len(elements)),
	}
	copy(snap.sites, sites)
	for i, s := range snap.sites {
		snap.siteIndex[s.Handle] = i
	}
	for _, e := range elements {
		snap.elementIndex[elementKey{siteID: e.SiteID, uri: normalizeURI(e.URI)}] = e
		snap.variantIndex[variantKey{ref: e.Ref(), siteID: e.SiteID}] = e
	}
	c.data.Store(snap)
}

// AllSites implements SiteCatalogue.
func (c *InMemoryCatalogue) AllSites(ctx context.Context) ([]Site, error) {
	data := c.data.Load()
	out := make([]Site, len(data.sites))
	copy(out, data.sites)
	return out, nil
}

// SiteByHandle implements SiteCatalogue.
func (c *InMemoryCatalogue) SiteByHandle(ctx context.Context, handle string) (Site, error) {
	data := c.data.Load()
	if i, ok := data.siteIndex[handle]; ok {
		return data.sites[i], nil
	}
	return Site{}, ErrNotFound
}

// SiteForURL implements SiteCatalogue.
func (c *InMemoryCatalogue) SiteForURL(ctx context.Context, rawURL string) (Site, error) {
	if s, ok := MatchSiteURL(c.data.Load().sites, rawURL); ok {
		return s, nil
	}
	return Site{}, ErrNotFound
}

// ElementForURI implements ElementCatalogue.
func (c *InMemoryCatalogue) ElementForURI(ctx context.Context, siteID int, uri string) (Element, error) {
	if e, ok := c.data.Load().elementIndex[elementKey{siteID: siteID, uri: normalizeURI(uri)}]; ok {
		return e, nil
	}
	return Element{}, ErrNotFound
}

// LocaleVariant implements ElementCatalogue.
func (c *InMemoryCatalogue) LocaleVariant(ctx context.Context, ref ElementRef, siteID int) (Element, error) {
	if e, ok := c.data.Load().variantIndex[variantKey{ref: ref, siteID: siteID}]; ok {
		return e, nil
	}
	return Element{}, ErrNotFound
}

// MatchSiteURL picks the site whose base URL host matches rawURL and whose
// base path is the longest prefix of its path. Sites without a base URL are
// never matched. When nothing matches, the primary site is returned.
func MatchSiteURL(sites []Site, rawURL string) (Site, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Site{}, false
	}
	var (
		best     Site
		bestLen  = -1
		primary  Site
		hasPrime bool
	)
	for _, s := range sites {
		if s.Primary && !hasPrime {
			primary, hasPrime = s, true
		}
		if s.BaseURL == "" {
			continue
		}
		b, err := url.Parse(s.BaseURL)
		if err != nil {
			continue
		}
		if b.Host != "" && !strings.EqualFold(b.Host, u.Host) {
			continue
		}
		base := strings.TrimSuffix(b.Path, "/")
		path := u.Path
		if base != "" && path != base && !strings.HasPrefix(path, base+"/") {
			continue
		}
		if len(base) > bestLen {
			best, bestLen = s, len(base)
		}
	}
	if bestLen >= 0 {
		return best, true
	}
	return primary, hasPrime
}

func normalizeURI(uri string) string {
	return strings.Trim(uri, "/")
}
