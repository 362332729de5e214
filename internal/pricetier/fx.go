package pricetier

import (
	"github.com/galette-community/plugin-stripe/internal/pricetier/repository"
	"github.com/galette-community/plugin-stripe/internal/pricetier/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricetier.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
