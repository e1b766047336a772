package api

import (
	"context"

	"github.com/patrickwarner/countryredirect/internal/models"
)

type redirectRequestKey struct{}

func withRedirectRequest(ctx context.Context, req *models.RedirectRequest) context.Context {
	return context.WithValue(ctx, redirectRequestKey{}, req)
}

func redirectRequestFrom(ctx context.Context) (*models.RedirectRequest, bool) {
	req, ok := ctx.Value(redirectRequestKey{}).(*models.RedirectRequest)
	return req, ok
}
