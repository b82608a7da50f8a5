package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"xray-ip-diag/internal/common"
	"xray-ip-diag/internal/config"
	"xray-ip-diag/internal/diagnose"
	"xray-ip-diag/internal/domain"
	"xray-ip-diag/internal/metrics"
	"xray-ip-diag/internal/probe"
	"xray-ip-diag/internal/prompt"
	"xray-ip-diag/internal/report"
	"xray-ip-diag/internal/xray"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 30 * time.Second
)

type Application struct {
	app      *fx.App
	logger   *zap.Logger
	runner   *diagnose.Runner
	reporter *report.Reporter
}

func NewApplication(opts ...common.Option) *Application {
	options := newServiceOptions(opts...)

	app := &Application{
		logger: options.Logger,
	}

	// Build fx application
	app.app = fx.New(
		modules(options),

		// Configure fx
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),

		// Set timeouts
		fx.StopTimeout(stopTimeout),
		fx.StartTimeout(startTimeout),

		fx.Populate(&app.runner, &app.reporter),
	)

	return app
}

func newServiceOptions(opts ...common.Option) *common.ServiceOptions {
	options := &common.ServiceOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Ensure required options are set
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Input == nil {
		options.Input = os.Stdin
	}
	if options.Output == nil {
		options.Output = os.Stdout
	}
	return options
}

// modules assembles the application graph shared by the binary and tests.
func modules(options *common.ServiceOptions) fx.Option {
	overrides := []fx.Option{}
	if options.Config != nil {
		overrides = append(overrides, fx.Replace(options.Config))
	}
	if options.Transport != nil {
		overrides = append(overrides, fx.Decorate(func(probe.Transport) probe.Transport {
			return options.Transport
		}))
	}

	return fx.Options(
		// Core modules
		config.Module,
		metrics.Module,
		xray.Module,
		probe.Module,
		prompt.Module,
		report.Module,
		diagnose.Module,

		// Provide base dependencies
		fx.Provide(
			func() *zap.Logger { return options.Logger },
			func() config.WorkDir { return options.WorkDir },
			func() report.Options {
				return report.Options{Writer: options.Output, NoColor: options.NoColor}
			},
			func() prompt.Options {
				return prompt.Options{Input: options.Input, Output: options.Output, NoColor: options.NoColor}
			},
		),

		fx.Options(overrides...),

		// Register lifecycle hooks
		fx.Invoke(registerHooks),
	)
}

func (a *Application) Start(ctx context.Context) error {
	return a.app.Start(ctx)
}

func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}

// Err reports a failure to build the dependency graph.
func (a *Application) Err() error {
	return a.app.Err()
}

func (a *Application) Reporter() *report.Reporter {
	return a.reporter
}

// Run starts the application, performs one diagnostic run and stops it
// again. The stop hooks release the child process and generated files even
// when the run was cut short.
func (a *Application) Run(ctx context.Context) (*domain.Diagnosis, error) {
	if err := a.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start application: %w", err)
	}

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()

		if err := a.Stop(stopCtx); err != nil {
			a.logger.Error("failed to stop application gracefully", zap.Error(err))
		}
	}()

	return a.runner.Run(ctx)
}
