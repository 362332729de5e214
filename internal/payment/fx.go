package payment

import (
	"github.com/galette-community/plugin-stripe/internal/payment/checkout"
	"github.com/galette-community/plugin-stripe/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(webhook.NewService),
	fx.Provide(checkout.NewService),
)
