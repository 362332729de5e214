package domain

import "context"

type Service interface {
	// Authenticate resolves a raw bearer token to a principal.
	Authenticate(ctx context.Context, rawToken string) (Principal, error)
}
