package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"xray-ip-diag/internal/metrics"
)

type hookParams struct {
	fx.In

	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
	Metrics   *metrics.Collector
}

func registerHooks(p hookParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Debug("starting application")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Metrics.LogSummary()
			p.Logger.Debug("stopping application")
			return nil
		},
	})
}
