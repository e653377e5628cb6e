package subscription

import (
	"github.com/atelierlabs/studiobook/internal/subscription/repository"
	"github.com/atelierlabs/studiobook/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
