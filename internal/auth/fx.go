package auth

import (
	"github.com/galette-community/plugin-stripe/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(service.New),
)
