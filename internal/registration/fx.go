package registration

import (
	"go.uber.org/fx"

	"github.com/mediflow/billing/internal/registration/service"
)

var Module = fx.Module("registration.service",
	fx.Provide(service.NewService),
)
