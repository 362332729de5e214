package settings

import (
	"github.com/galette-community/plugin-stripe/internal/settings/repository"
	"github.com/galette-community/plugin-stripe/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
