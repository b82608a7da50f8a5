package config

import "go.uber.org/fx"

// Module provides the validated run configuration
var Module = fx.Options(
	fx.Provide(NewConfig),
)
