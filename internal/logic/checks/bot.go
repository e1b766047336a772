package checks

import (
	"context"

	"github.com/patrickwarner/countryredirect/internal/logic"
	"github.com/patrickwarner/countryredirect/internal/models"
)

// BotCheck halts for crawlers so they index the canonical pages.
type BotCheck struct {
	Detector logic.CrawlerDetector
}

func (c BotCheck) Name() string { return "bot" }

func (c BotCheck) Execute(ctx context.Context, req *models.RedirectRequest) Result {
	if c.Detector != nil && c.Detector.IsBot(req.UserAgent) {
		return Halt
	}
	return Continue
}
