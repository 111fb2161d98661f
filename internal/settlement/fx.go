package settlement

import (
	"go.uber.org/fx"

	"github.com/mediflow/billing/internal/settlement/service"
)

var Module = fx.Module("settlement.service",
	fx.Provide(service.NewReportCache),
	fx.Provide(service.NewService),
)
