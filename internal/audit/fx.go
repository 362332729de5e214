package audit

import (
	"github.com/galette-community/plugin-stripe/internal/audit/repository"
	"github.com/galette-community/plugin-stripe/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
