package interfaces

import (
	"context"

	"xray-ip-diag/internal/domain"
	"xray-ip-diag/internal/xray"
)

// Prompter defines the interactive inputs of a run
type Prompter interface {
	Port(ctx context.Context) (int, error)
	Link(ctx context.Context) (string, error)
	ExecutablePath(ctx context.Context) (string, error)
}

// Locator defines executable discovery
type Locator interface {
	Locate(ctx context.Context, prompt xray.PathPrompt) (string, error)
	Candidates() []string
}

// ConfigStore defines generated config file handling
type ConfigStore interface {
	Path(port int) string
	Write(cfg *xray.Config, port int) (string, error)
	Remove(path string) error
}

// Supervisor defines the xray process lifecycle
type Supervisor interface {
	Start(ctx context.Context, executable, configPath string) (*xray.Process, error)
	Stop(p *xray.Process) domain.StopMethod
}

// Prober defines the connectivity check through the local listener
type Prober interface {
	Probe(ctx context.Context, port int, endpoints []domain.Endpoint, observer domain.ProbeObserver) (*domain.ProbeResult, error)
	Proxied() bool
}
