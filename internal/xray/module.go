package xray

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the locator, config store and process supervisor
var Module = fx.Options(
	fx.Provide(
		NewLocator,
		NewConfigStore,
		NewSupervisor,
	),
	fx.Invoke(registerHooks),
)

// registerHooks releases the child process and generated files even when
// the diagnostic run was interrupted before its own cleanup ran.
func registerHooks(lc fx.Lifecycle, supervisor *Supervisor, store *ConfigStore) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			supervisor.StopAll()
			store.RemoveAll()
			return nil
		},
	})
}
