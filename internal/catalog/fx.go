package catalog

import (
	"github.com/atelierlabs/studiobook/internal/catalog/repository"
	"github.com/atelierlabs/studiobook/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
