package refund

import (
	"go.uber.org/fx"

	"github.com/mediflow/billing/internal/refund/service"
)

var Module = fx.Module("refund.service",
	fx.Provide(service.NewService),
)
