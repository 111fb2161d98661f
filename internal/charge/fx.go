package charge

import (
	"go.uber.org/fx"

	"github.com/mediflow/billing/internal/charge/repository"
	"github.com/mediflow/billing/internal/charge/service"
)

var Module = fx.Module("charge.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
