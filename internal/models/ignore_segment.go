package models

import "strings"

// IgnoreSegment exempts request URIs from redirect checks.
type IgnoreSegment struct {
	RawSegment string `json:"raw_segment"`
}

// Match reports whether uri contains the segment anywhere. Matching is plain
// substring containment; an empty segment never matches.
func (s IgnoreSegment) Match(uri string) bool {
	if s.RawSegment == "" {
		return false
	}
	return strings.Contains(uri, s.RawSegment)
}

// NewIgnoreSegments wraps raw configured segments.
func NewIgnoreSegments(raw []string) []IgnoreSegment {
	out := make([]IgnoreSegment, 0, len(raw))
	for _, r := range raw {
		out = append(out, IgnoreSegment{RawSegment: r})
	}
	return out
}
