package credits

import (
	"github.com/atelierlabs/studiobook/internal/credits/repository"
	"github.com/atelierlabs/studiobook/internal/credits/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credits.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
