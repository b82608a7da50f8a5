package diagnose

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"xray-ip-diag/internal/config"
	"xray-ip-diag/internal/domain"
	"xray-ip-diag/internal/interfaces"
	"xray-ip-diag/internal/link"
	"xray-ip-diag/internal/report"
	"xray-ip-diag/internal/xray"
)

const Version = "v1.0"

const (
	statusSuccess = "success"
	statusFailure = "failure"

	stepStop = "stop"
)

type Params struct {
	fx.In

	Config     *config.Config
	Logger     *zap.Logger
	Prompter   interfaces.Prompter
	Locator    interfaces.Locator
	Store      interfaces.ConfigStore
	Supervisor interfaces.Supervisor
	Prober     interfaces.Prober
	Reporter   *report.Reporter
	Metrics    domain.MetricsCollector
}

// Runner performs one diagnostic run: parse, locate, write config, start,
// probe and stop. The child process and the generated config are released
// on every return path.
type Runner struct {
	cfg        *config.Config
	logger     *zap.Logger
	prompter   interfaces.Prompter
	locator    interfaces.Locator
	store      interfaces.ConfigStore
	supervisor interfaces.Supervisor
	prober     interfaces.Prober
	reporter   *report.Reporter
	metrics    domain.MetricsCollector
}

func NewRunner(p Params) *Runner {
	return &Runner{
		cfg:        p.Config,
		logger:     p.Logger.With(zap.String("component", "diagnose")),
		prompter:   p.Prompter,
		locator:    p.Locator,
		store:      p.Store,
		supervisor: p.Supervisor,
		prober:     p.Prober,
		reporter:   p.Reporter,
		metrics:    p.Metrics,
	}
}

// Run returns an error only for failures outside the diagnostic steps,
// such as closed input or cancellation. Step failures are reported and
// recorded in the returned Diagnosis.
func (r *Runner) Run(ctx context.Context) (*domain.Diagnosis, error) {
	diag := &domain.Diagnosis{Started: time.Now()}
	defer func() {
		diag.Duration = time.Since(diag.Started)
		r.logger.Debug("diagnosis finished",
			zap.Bool("success", diag.Success),
			zap.String("failed_step", string(diag.FailedStep)),
			zap.String("stop", string(diag.Stop)),
			zap.Duration("duration", diag.Duration))
	}()

	r.reporter.Banner(Version)

	port, raw, err := r.readInput(ctx)
	if err != nil {
		return r.abort(diag, domain.KindInput, err)
	}

	r.reporter.Step(1, "Parsing share link...")
	outbound, err := link.Parse(raw)
	if err != nil {
		return r.abort(diag, domain.KindParse, err)
	}
	r.stepSucceeded(domain.KindParse)
	r.describeLink(raw, outbound)

	r.reporter.Step(2, "Looking for xray...")
	executable, err := r.locator.Locate(ctx, r.askExecutable)
	if err != nil {
		return r.abort(diag, domain.KindLocate, err)
	}
	r.stepSucceeded(domain.KindLocate)
	r.reporter.Success("Found: %s", executable)

	r.reporter.Step(3, "Writing xray config...")
	configPath := r.store.Path(port)
	defer r.removeConfig(configPath)

	configPath, err = r.store.Write(xray.Assemble(*outbound, port, r.cfg.LogLevel), port)
	if err != nil {
		return r.abort(diag, domain.KindConfigIO, err)
	}
	diag.ConfigPath = configPath
	r.stepSucceeded(domain.KindConfigIO)
	r.reporter.Success("Config written: %s", configPath)
	r.reporter.Success("Config is valid JSON")

	r.reporter.Step(4, "Starting xray on port %d...", port)
	process, err := r.supervisor.Start(ctx, executable, configPath)
	if err != nil {
		r.recordLaunch(err)
		r.describeLaunchFailure(err)
		return r.abort(diag, domain.KindLaunch, err)
	}
	defer r.stopProcess(diag, process)

	r.metrics.RecordLaunch("started")
	r.stepSucceeded(domain.KindLaunch)
	r.reporter.Success("xray started (PID: %d)", process.Pid())

	endpoints := r.cfg.Endpoints()
	r.reporter.Step(5, "Checking IP through %d services...", len(endpoints))
	if !r.prober.Proxied() {
		r.reporter.Blank()
		r.reporter.Warning("SOCKS5 dialing is not available")
		r.reporter.Detail("Requests are sent directly, bypassing the proxy")
	}

	result, err := r.prober.Probe(ctx, port, endpoints, r.reporter)
	if err != nil {
		return r.abort(diag, domain.KindProbe, err)
	}
	diag.Probe = result
	diag.Success = result.Success

	if result.Success {
		r.stepSucceeded(domain.KindProbe)
		r.reporter.Geo(result)
	} else {
		r.metrics.RecordStep(string(domain.KindProbe), statusFailure)
		diag.FailedStep = domain.KindProbe
	}

	r.reporter.Step(6, "Stopping xray...")
	r.stopProcess(diag, process)
	r.reporter.Success("xray stopped")
	switch diag.Stop {
	case domain.StopForced:
		r.reporter.Detail("killed after it ignored the stop request")
	case domain.StopExited:
		r.reporter.Detail("it had already exited (code %d)", process.ExitCode())
	}

	r.reporter.ProbeStats(r.metrics.ProbeStats())
	r.reporter.Summary(diag.Success)
	return diag, nil
}

func (r *Runner) readInput(ctx context.Context) (int, string, error) {
	port, err := r.prompter.Port(ctx)
	if err != nil {
		return 0, "", err
	}
	raw, err := r.prompter.Link(ctx)
	if err != nil {
		return 0, "", err
	}
	return port, raw, nil
}

func (r *Runner) askExecutable(ctx context.Context) (string, error) {
	r.reporter.Failure("None of %v found in the working directory", r.locator.Candidates())
	return r.prompter.ExecutablePath(ctx)
}

// abort reports a step failure. Errors that are not step errors end the run
// without a verdict and are returned to the caller.
func (r *Runner) abort(diag *domain.Diagnosis, step domain.ErrorKind, err error) (*domain.Diagnosis, error) {
	diag.Err = err

	var stepErr *domain.StepError
	if !errors.As(err, &stepErr) {
		r.logger.Debug("run interrupted", zap.String("step", string(step)), zap.Error(err))
		return diag, err
	}

	diag.FailedStep = stepErr.Kind
	r.metrics.RecordStep(string(stepErr.Kind), statusFailure)

	var launchFailure *xray.LaunchFailure
	if !errors.As(err, &launchFailure) {
		r.reporter.Failure("Error: %v", err)
	}
	r.reporter.Aborted(string(stepErr.Kind))
	return diag, nil
}

func (r *Runner) stepSucceeded(step domain.ErrorKind) {
	r.metrics.RecordStep(string(step), statusSuccess)
}

func (r *Runner) recordLaunch(err error) {
	var launchFailure *xray.LaunchFailure
	switch {
	case errors.As(err, &launchFailure):
		r.metrics.RecordLaunch("exited")
	case domain.IsKind(err, domain.KindLaunch):
		r.metrics.RecordLaunch("error")
	}
}

func (r *Runner) stopProcess(diag *domain.Diagnosis, process *xray.Process) {
	if diag.Stop != domain.StopNotStarted {
		return
	}
	diag.Stop = r.supervisor.Stop(process)
	r.metrics.RecordStop(diag.Stop)
	r.metrics.RecordStep(stepStop, statusSuccess)
}

func (r *Runner) removeConfig(path string) {
	if err := r.store.Remove(path); err != nil {
		r.logger.Debug("failed to remove config", zap.String("path", path), zap.Error(err))
	}
}
