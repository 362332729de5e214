package authorization

import (
	"context"
	"errors"

	authdomain "github.com/galette-community/plugin-stripe/internal/auth/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("authorization.service",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

type Service interface {
	Authorize(ctx context.Context, principal authdomain.Principal, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
