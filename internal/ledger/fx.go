package ledger

import (
	"github.com/galette-community/plugin-stripe/internal/ledger/repository"
	"github.com/galette-community/plugin-stripe/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
