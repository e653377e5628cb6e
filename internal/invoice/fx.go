package invoice

import (
	"github.com/atelierlabs/studiobook/internal/invoice/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice",
	fx.Provide(repository.Provide),
)
