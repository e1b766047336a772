package checks

import (
	"context"

	"github.com/patrickwarner/countryredirect/internal/models"
)

// IgnoredSegmentCheck halts for URIs containing any ignored segment.
type IgnoredSegmentCheck struct {
	Segments []models.IgnoreSegment
}

func (c IgnoredSegmentCheck) Name() string { return "ignored_segment" }

func (c IgnoredSegmentCheck) Execute(ctx context.Context, req *models.RedirectRequest) Result {
	for _, s := range c.Segments {
		if s.Match(req.CurrentURI) {
			return Halt
		}
	}
	return Continue
}
