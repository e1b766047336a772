// Package checks implements the ordered redirect check chain. Each check
// either lets the chain continue or halts it; none of them builds the final
// redirect URL.
package checks

import (
	"context"

	"go.uber.org/zap"

	"github.com/patrickwarner/countryredirect/internal/models"
	"github.com/patrickwarner/countryredirect/internal/observability"
)

// Result is the outcome of a single check.
type Result int

const (
	// Continue hands the request to the next check.
	Continue Result = iota
	// Halt stops the chain; the request will not be redirected.
	Halt
)

func (r Result) String() string {
	if r == Halt {
		return "halt"
	}
	return "continue"
}

// Check is one step of the chain. Checks may write to req but must not
// keep state between requests.
type Check interface {
	Name() string
	Execute(ctx context.Context, req *models.RedirectRequest) Result
}

// URLBuilder builds the redirect URL once the chain has passed.
type URLBuilder interface {
	BuildForRequest(ctx context.Context, req *models.RedirectRequest) (string, bool)
}

// Pipeline runs checks strictly in order.
type Pipeline struct {
	checks  []Check
	builder URLBuilder
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewPipeline returns a pipeline over checks.
func NewPipeline(checks []Check, builder URLBuilder, logger *zap.Logger, metrics observability.MetricsRegistry) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Pipeline{checks: checks, builder: builder, logger: logger, metrics: metrics}
}

// Run executes the chain against req and sets req.RedirectURL when every
// check passed and a destination could be built. Fields written by checks
// are cleared first, so a request can be run again.
func (p *Pipeline) Run(ctx context.Context, req *models.RedirectRequest) {
	req.CountryCode = ""
	req.SiteHandle = ""
	req.TargetSite = nil
	req.MatchedElement = nil
	req.RedirectURL = ""
	req.HaltedBy = ""
	req.Executed = req.Executed[:0]

	for _, c := range p.checks {
		req.Executed = append(req.Executed, c.Name())
		if c.Execute(ctx, req) == Halt {
			req.HaltedBy = c.Name()
			p.metrics.IncrementCheckHalts(c.Name())
			p.logger.Debug("redirect check halted",
				zap.String("check", c.Name()),
				zap.String("uri", req.CurrentURI))
			return
		}
	}

	if p.builder == nil {
		return
	}
	if url, ok := p.builder.BuildForRequest(ctx, req); ok {
		req.RedirectURL = url
	}
}
