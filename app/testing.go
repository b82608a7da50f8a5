package app

import (
	"context"
	"testing"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"xray-ip-diag/internal/common"
	"xray-ip-diag/internal/diagnose"
	"xray-ip-diag/internal/domain"
	"xray-ip-diag/internal/metrics"
)

// TestApplication runs the full application graph under fxtest
type TestApplication struct {
	tb        testing.TB
	testApp   *fxtest.App
	options   []fx.Option
	service   *common.ServiceOptions
	runner    *diagnose.Runner
	collector *metrics.Collector
}

func NewTestApplication(tb testing.TB, opts ...common.Option) *TestApplication {
	service := newServiceOptions(append([]common.Option{common.WithNoColor(true)}, opts...)...)

	return &TestApplication{
		tb:      tb,
		service: service,
		options: []fx.Option{},
	}
}

func (ta *TestApplication) WithOption(opt fx.Option) *TestApplication {
	ta.options = append(ta.options, opt)
	return ta
}

func (ta *TestApplication) Start(ctx context.Context) error {
	var testOptions []fx.Option

	// Add base options
	testOptions = append(testOptions,
		modules(ta.service),
		fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }),
		fx.Populate(&ta.runner, &ta.collector),
	)

	// Add user-provided options
	testOptions = append(testOptions, ta.options...)

	// Configure test app
	testOptions = append(testOptions,
		fx.StartTimeout(10*time.Second),
		fx.StopTimeout(10*time.Second),
	)

	// Create test app
	ta.testApp = fxtest.New(
		ta.tb,
		testOptions...,
	)

	return ta.testApp.Start(ctx)
}

// Run performs one diagnostic run on a started application.
func (ta *TestApplication) Run(ctx context.Context) (*domain.Diagnosis, error) {
	return ta.runner.Run(ctx)
}

func (ta *TestApplication) Metrics() *metrics.Collector {
	return ta.collector
}

func (ta *TestApplication) Stop(ctx context.Context) error {
	if ta.testApp != nil {
		return ta.testApp.Stop(ctx)
	}
	return nil
}

func (ta *TestApplication) Logger() *zap.Logger {
	return ta.service.Logger
}
