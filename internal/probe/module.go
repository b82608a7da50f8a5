package probe

import "go.uber.org/fx"

// Module provides the transport and the prober
var Module = fx.Options(
	fx.Provide(
		NewTransport,
		NewProber,
	),
)
