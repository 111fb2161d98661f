package payment

import (
	"go.uber.org/fx"

	"github.com/mediflow/billing/internal/payment/service"
)

var Module = fx.Module("payment.service",
	fx.Provide(service.NewAuthorizer),
	fx.Provide(service.NewService),
)
