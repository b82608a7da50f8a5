package xray

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
	"xray-ip-diag/internal/config"
	"xray-ip-diag/internal/domain"
)

const (
	outputLimit    = 64 << 10
	launchExcerpt  = 300
	rerunExcerpt   = 500
	ioDrainTimeout = time.Second
)

// LaunchFailure describes a process that exited during the settle period.
type LaunchFailure struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Rerun    *RerunResult
}

func (f *LaunchFailure) Error() string {
	return fmt.Sprintf("process exited with code %d", f.ExitCode)
}

// RerunResult is the outcome of running the executable again in the
// foreground after a failed launch.
type RerunResult struct {
	// Blocked is set when the re-run was still alive at the timeout. The
	// binary keeps running under the same config, so the first failure may
	// have been transient; it does not turn the launch into a success.
	Blocked  bool
	ExitCode int
	Stderr   string
	Err      error
}

// Process is a running proxy child started by the Supervisor.
type Process struct {
	cmd      *exec.Cmd
	stdout   *headBuffer
	stderr   *headBuffer
	done     chan struct{}
	waitErr  error
	stopOnce sync.Once
	stopped  domain.StopMethod
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *Process) Stdout() string {
	return p.stdout.String()
}

func (p *Process) Stderr() string {
	return p.stderr.String()
}

// ExitCode is -1 while the process is still running.
func (p *Process) ExitCode() int {
	if !p.Exited() || p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Supervisor starts the proxy executable and guarantees it is stopped.
type Supervisor struct {
	settleDelay  time.Duration
	stopTimeout  time.Duration
	rerunTimeout time.Duration
	logger       *zap.Logger
	mutex        sync.Mutex
	active       map[*Process]struct{}
}

func NewSupervisor(cfg *config.Config, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		settleDelay:  cfg.SettleDelay,
		stopTimeout:  cfg.StopTimeout,
		rerunTimeout: cfg.RerunTimeout,
		logger:       logger.With(zap.String("component", "supervisor")),
		active:       make(map[*Process]struct{}),
	}
}

func command(ctx context.Context, executable, configPath string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, executable, "run", "-config", configPath)
	cmd.SysProcAttr = sysProcAttr()
	cmd.WaitDelay = ioDrainTimeout
	return cmd
}

// Start launches executable with configPath and waits for the settle
// period. A process that exits within it is reported as a launch failure.
func (s *Supervisor) Start(ctx context.Context, executable, configPath string) (*Process, error) {
	// The child must outlive ctx; Stop owns its termination.
	cmd := command(context.Background(), executable, configPath)

	p := &Process{
		cmd:    cmd,
		stdout: newHeadBuffer(outputLimit),
		stderr: newHeadBuffer(outputLimit),
		done:   make(chan struct{}),
	}
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr

	if err := cmd.Start(); err != nil {
		return nil, domain.NewStepError(domain.KindLaunch, "failed to start xray", err)
	}

	s.logger.Debug("started xray process",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("config", configPath))

	s.track(p)

	go func() {
		defer close(p.done)
		p.waitErr = cmd.Wait()
		if p.waitErr != nil {
			s.logger.Debug("xray process exited", zap.Error(p.waitErr))
		}
	}()

	timer := time.NewTimer(s.settleDelay)
	defer timer.Stop()

	select {
	case <-p.done:
		s.untrack(p)
		failure := &LaunchFailure{
			ExitCode: p.ExitCode(),
			Stdout:   excerpt(p.Stdout(), launchExcerpt),
			Stderr:   excerpt(p.Stderr(), launchExcerpt),
		}
		failure.Rerun = s.rerun(ctx, executable, configPath)
		return nil, domain.NewStepError(domain.KindLaunch, "xray exited right after start", failure)
	case <-ctx.Done():
		s.Stop(p)
		return nil, ctx.Err()
	case <-timer.C:
	}

	return p, nil
}

func (s *Supervisor) rerun(ctx context.Context, executable, configPath string) *RerunResult {
	rctx, cancel := context.WithTimeout(ctx, s.rerunTimeout)
	defer cancel()

	stderr := newHeadBuffer(outputLimit)
	cmd := command(rctx, executable, configPath)
	cmd.Stderr = stderr

	err := cmd.Run()
	result := &RerunResult{
		ExitCode: -1,
		Stderr:   excerpt(stderr.String(), rerunExcerpt),
	}

	if errors.Is(rctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.Blocked = true
		return result
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.Err = err
	}
	return result
}

// Stop terminates p gracefully, killing it when it does not exit within
// the stop timeout. It never fails and is safe to call more than once.
func (s *Supervisor) Stop(p *Process) domain.StopMethod {
	if p == nil {
		return domain.StopNotStarted
	}

	p.stopOnce.Do(func() {
		defer s.untrack(p)

		if p.Exited() {
			p.stopped = domain.StopExited
			return
		}

		if err := terminate(p.cmd.Process); err != nil {
			s.logger.Debug("failed to terminate xray process", zap.Error(err))
		}

		timer := time.NewTimer(s.stopTimeout)
		defer timer.Stop()

		select {
		case <-p.done:
			p.stopped = domain.StopGraceful
			return
		case <-timer.C:
		}

		if err := p.cmd.Process.Kill(); err != nil {
			s.logger.Debug("failed to kill xray process", zap.Error(err))
		}

		select {
		case <-p.done:
		case <-time.After(s.stopTimeout):
			s.logger.Warn("xray process did not exit after kill", zap.Int("pid", p.Pid()))
		}
		p.stopped = domain.StopForced
	})

	return p.stopped
}

// StopAll stops every process that is still tracked.
func (s *Supervisor) StopAll() {
	s.mutex.Lock()
	processes := make([]*Process, 0, len(s.active))
	for p := range s.active {
		processes = append(processes, p)
	}
	s.mutex.Unlock()

	for _, p := range processes {
		s.Stop(p)
	}
}

func (s *Supervisor) track(p *Process) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.active[p] = struct{}{}
}

func (s *Supervisor) untrack(p *Process) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.active, p)
}

// headBuffer keeps the first limit bytes written to it.
type headBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func newHeadBuffer(limit int) *headBuffer {
	return &headBuffer{limit: limit}
}

func (b *headBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *headBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// excerpt returns at most n characters of s.
func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
