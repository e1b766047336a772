package logic

import (
	"strings"

	"github.com/avct/uasurfer"
)

// CrawlerDetector classifies user agents as crawlers.
type CrawlerDetector interface {
	IsBot(userAgent string) bool
}

// crawlerSignatures catches crawlers uasurfer reports as regular browsers.
var crawlerSignatures = []string{
	"bot/",
	"bot;",
	"crawler",
	"spider",
	"slurp",
	"facebookexternalhit",
	"embedly",
	"quora link preview",
	"whatsapp",
	"lighthouse",
	"headlesschrome",
	"curl/",
	"wget/",
	"python-requests",
}

// UACrawlerDetector detects crawlers with uasurfer plus a signature list.
type UACrawlerDetector struct{}

// NewUACrawlerDetector returns a detector.
func NewUACrawlerDetector() *UACrawlerDetector {
	return &UACrawlerDetector{}
}

// IsBot implements CrawlerDetector. An empty user agent is not a crawler.
func (d *UACrawlerDetector) IsBot(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	if uasurfer.Parse(userAgent).IsBot() {
		return true
	}
	ua := strings.ToLower(userAgent)
	for _, sig := range crawlerSignatures {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	return false
}
