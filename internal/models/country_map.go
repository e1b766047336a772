package models

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// WildcardCountry is the country map key consulted when no exact country
// entry yields a target. It doubles as the "unknown country" sentinel.
const WildcardCountry = "*"

// LanguageTarget maps one browser language code to a site handle.
type LanguageTarget struct {
	Language string
	Handle   string
}

// CountryTarget is the value side of a country map entry: either a single
// site handle or absolute URL, or an ordered per-language sub-map for
// countries with more than one language.
type CountryTarget struct {
	Value     string
	Languages []LanguageTarget
}

// SiteTarget returns a target pointing at a single site handle or URL.
func SiteTarget(v string) CountryTarget {
	return CountryTarget{Value: v}
}

// LanguageTargets returns a multi-language target.
func LanguageTargets(langs ...LanguageTarget) CountryTarget {
	return CountryTarget{Languages: langs}
}

// IsLanguageMap reports whether the target is a per-language sub-map.
func (t CountryTarget) IsLanguageMap() bool {
	return len(t.Languages) > 0
}

// Handles lists every site handle (or URL) the target can resolve to.
func (t CountryTarget) Handles() []string {
	if !t.IsLanguageMap() {
		if t.Value == "" {
			return nil
		}
		return []string{t.Value}
	}
	out := make([]string, 0, len(t.Languages))
	for _, l := range t.Languages {
		out = append(out, l.Handle)
	}
	return out
}

// CountryMapEntry is one configured country code and its target.
type CountryMapEntry struct {
	Country string
	Target  CountryTarget
}

// CountryMap is the ordered country to site mapping. Country codes are stored
// lower-cased; a later entry for the same code replaces the earlier one in
// place so the original position is kept.
type CountryMap struct {
	entries []CountryMapEntry
}

// NewCountryMap builds a map from entries in order.
func NewCountryMap(entries ...CountryMapEntry) CountryMap {
	var m CountryMap
	for _, e := range entries {
		m.Set(e.Country, e.Target)
	}
	return m
}

// Set adds or replaces the target for country. The entries are copied
// first, so copies of m taken earlier are not affected.
func (m *CountryMap) Set(country string, target CountryTarget) {
	country = strings.ToLower(strings.TrimSpace(country))
	entries := make([]CountryMapEntry, len(m.entries), len(m.entries)+1)
	copy(entries, m.entries)
	for i := range entries {
		if entries[i].Country == country {
			entries[i].Target = target
			m.entries = entries
			return
		}
	}
	m.entries = append(entries, CountryMapEntry{Country: country, Target: target})
}

// Lookup returns the entry for country, matched case-insensitively.
func (m CountryMap) Lookup(country string) (CountryTarget, bool) {
	country = strings.ToLower(country)
	for _, e := range m.entries {
		if e.Country == country {
			return e.Target, true
		}
	}
	return CountryTarget{}, false
}

// Entries returns the entries in configuration order.
func (m CountryMap) Entries() []CountryMapEntry {
	out := make([]CountryMapEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of entries.
func (m CountryMap) Len() int {
	return len(m.entries)
}

// UnmarshalYAML decodes a mapping of country code to either a scalar handle
// or URL, or a nested mapping of language code to handle. Node order is kept.
func (m *CountryMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("country map: expected mapping, got %s", kindName(node.Kind))
	}
	*m = CountryMap{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			m.Set(key.Value, SiteTarget(val.Value))
		case yaml.MappingNode:
			var langs []LanguageTarget
			for j := 0; j+1 < len(val.Content); j += 2 {
				lk, lv := val.Content[j], val.Content[j+1]
				if lv.Kind != yaml.ScalarNode {
					return fmt.Errorf("country map %q: language %q: expected site handle", key.Value, lk.Value)
				}
				langs = append(langs, LanguageTarget{Language: strings.ToLower(lk.Value), Handle: lv.Value})
			}
			m.Set(key.Value, LanguageTargets(langs...))
		default:
			return fmt.Errorf("country map %q: unsupported value of kind %s", key.Value, kindName(val.Kind))
		}
	}
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
