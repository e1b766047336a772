package logic

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/language"

	"github.com/patrickwarner/countryredirect/internal/models"
)

type acceptEntry struct {
	tags []string
	q    float32
}

// ParseAcceptLanguage returns the languages of an Accept-Language header in
// preference order. Entries are parsed one at a time so a malformed entry
// only drops itself. When the canonical form of a tag differs from what the
// browser sent (legacy codes such as "i-klingon"), both are returned, the
// canonical form first.
func ParseAcceptLanguage(header string) []string {
	var entries []acceptEntry
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tags, q, err := language.ParseAcceptLanguage(part)
		if err != nil || len(tags) == 0 {
			continue
		}
		t := tags[0]
		// "*" parses as "mul"
		if t == language.Und || t.String() == "mul" {
			continue
		}
		e := acceptEntry{tags: []string{t.String()}, q: q[0]}
		raw, _, _ := strings.Cut(part, ";")
		if r := normalizeLanguage(raw); r != "" && r != strings.ToLower(t.String()) {
			e.tags = append(e.tags, strings.TrimSpace(raw))
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil
	}
	slices.SortStableFunc(entries, func(a, b acceptEntry) int {
		return cmp.Compare(b.q, a.q)
	})
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.tags...)
	}
	return out
}

// matchLanguage walks prefs in order and returns the handle of the first
// preference with an entry in targets. A preference matches its exact tag
// first, then its primary language subtag ("fr-CH" matches "fr").
func matchLanguage(prefs []string, targets []models.LanguageTarget) (string, bool) {
	for _, pref := range prefs {
		p := normalizeLanguage(pref)
		if p == "" {
			continue
		}
		for _, t := range targets {
			if normalizeLanguage(t.Language) == p {
				return t.Handle, true
			}
		}
		base := baseLanguage(p)
		for _, t := range targets {
			if normalizeLanguage(t.Language) == base {
				return t.Handle, true
			}
		}
	}
	return "", false
}

// SameLanguage reports whether two language codes share a primary subtag,
// so "en-GB" and "en_US" are the same language.
func SameLanguage(a, b string) bool {
	a, b = baseLanguage(normalizeLanguage(a)), baseLanguage(normalizeLanguage(b))
	return a != "" && a == b
}

func normalizeLanguage(code string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
}

func baseLanguage(code string) string {
	if i := strings.IndexByte(code, '-'); i >= 0 {
		return code[:i]
	}
	return code
}
