package inventory

import (
	"go.uber.org/fx"

	"github.com/mediflow/billing/internal/inventory/service"
)

var Module = fx.Module("inventory.service",
	fx.Provide(service.NewService),
)
