package clock

import "go.uber.org/fx"

// Module wires the wall clock. Tests construct their own fixed clocks.
var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
