package cycle

import "go.uber.org/fx"

var Module = fx.Module("cycle.provider",
	fx.Provide(New),
)
