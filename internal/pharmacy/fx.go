package pharmacy

import (
	"go.uber.org/fx"

	"github.com/mediflow/billing/internal/pharmacy/service"
)

var Module = fx.Module("pharmacy.service",
	fx.Provide(service.NewService),
)
