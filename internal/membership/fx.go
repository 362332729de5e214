package membership

import (
	"github.com/galette-community/plugin-stripe/internal/membership/repository"
	"github.com/galette-community/plugin-stripe/internal/membership/service"
	"go.uber.org/fx"
)

var Module = fx.Module("membership.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
