package payment

import (
	"github.com/atelierlabs/studiobook/internal/payment/adapters"
	"github.com/atelierlabs/studiobook/internal/payment/adapters/stripe"
	"github.com/atelierlabs/studiobook/internal/payment/checkout"
	"github.com/atelierlabs/studiobook/internal/payment/repository"
	paymentservice "github.com/atelierlabs/studiobook/internal/payment/service"
	"github.com/atelierlabs/studiobook/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			stripe.NewFactory(),
		)
	}),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
	fx.Provide(checkout.NewClient),
)
