package diagnose

import (
	"go.uber.org/fx"
	"xray-ip-diag/internal/interfaces"
	"xray-ip-diag/internal/probe"
	"xray-ip-diag/internal/prompt"
	"xray-ip-diag/internal/xray"
)

// Module binds the concrete services to the interfaces the runner uses
var Module = fx.Options(
	fx.Provide(
		func(p *prompt.Prompter) interfaces.Prompter { return p },
		func(l *xray.Locator) interfaces.Locator { return l },
		func(s *xray.ConfigStore) interfaces.ConfigStore { return s },
		func(s *xray.Supervisor) interfaces.Supervisor { return s },
		func(p *probe.Prober) interfaces.Prober { return p },
		NewRunner,
	),
)
