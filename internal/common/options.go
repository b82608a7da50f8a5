package common

import (
	"io"

	"go.uber.org/zap"
	"xray-ip-diag/internal/config"
	"xray-ip-diag/internal/probe"
)

// ServiceOptions defines common options for the application constructors
type ServiceOptions struct {
	Logger    *zap.Logger
	Config    *config.Config
	WorkDir   config.WorkDir
	Input     io.Reader
	Output    io.Writer
	NoColor   bool
	Transport probe.Transport
}

// Option defines a service option modifier
type Option func(*ServiceOptions)

func WithLogger(logger *zap.Logger) Option {
	return func(o *ServiceOptions) {
		o.Logger = logger
	}
}

// WithConfig replaces the default configuration entirely.
func WithConfig(cfg *config.Config) Option {
	return func(o *ServiceOptions) {
		o.Config = cfg
	}
}

func WithWorkDir(dir string) Option {
	return func(o *ServiceOptions) {
		o.WorkDir = config.WorkDir(dir)
	}
}

func WithInput(in io.Reader) Option {
	return func(o *ServiceOptions) {
		o.Input = in
	}
}

func WithOutput(out io.Writer) Option {
	return func(o *ServiceOptions) {
		o.Output = out
	}
}

func WithNoColor(noColor bool) Option {
	return func(o *ServiceOptions) {
		o.NoColor = noColor
	}
}

// WithTransport overrides the probe transport chosen at startup.
func WithTransport(transport probe.Transport) Option {
	return func(o *ServiceOptions) {
		o.Transport = transport
	}
}
