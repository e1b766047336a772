package checks

import (
	"context"

	"github.com/patrickwarner/countryredirect/internal/models"
)

// EnabledCheck halts when redirects are switched off.
type EnabledCheck struct {
	Enabled bool
}

func (c EnabledCheck) Name() string { return "enabled" }

func (c EnabledCheck) Execute(ctx context.Context, req *models.RedirectRequest) Result {
	if !c.Enabled {
		return Halt
	}
	return Continue
}
