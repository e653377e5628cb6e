package booking

import (
	"github.com/atelierlabs/studiobook/internal/booking/repository"
	"github.com/atelierlabs/studiobook/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
