//go:build !windows

package diagnose

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"xray-ip-diag/internal/config"
	"xray-ip-diag/internal/domain"
	"xray-ip-diag/internal/interfaces"
	"xray-ip-diag/internal/metrics"
	"xray-ip-diag/internal/probe"
	"xray-ip-diag/internal/prompt"
	"xray-ip-diag/internal/report"
	"xray-ip-diag/internal/xray"
)

const testLink = "vless://b831381d-6324-4d53-ad4f-8cda48b30811@example.com:443?type=ws&security=tls&sni=example.com&path=%2Fws#Frankfurt"

type fakePrompter struct {
	port    int
	portErr error
	link    string
	path    string
	asked   bool
}

func (p *fakePrompter) Port(context.Context) (int, error) {
	return p.port, p.portErr
}

func (p *fakePrompter) Link(context.Context) (string, error) {
	if p.link == "" {
		return "", prompt.ErrInputClosed
	}
	return p.link, nil
}

func (p *fakePrompter) ExecutablePath(context.Context) (string, error) {
	p.asked = true
	return p.path, nil
}

type fakeProber struct {
	result *domain.ProbeResult
	block  bool
	delay  time.Duration
	calls  int
}

func (p *fakeProber) Proxied() bool { return true }

func (p *fakeProber) Probe(ctx context.Context, _ int, endpoints []domain.Endpoint, observer domain.ProbeObserver) (*domain.ProbeResult, error) {
	p.calls++
	if p.block {
		<-ctx.Done()
		return &domain.ProbeResult{}, ctx.Err()
	}
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return &domain.ProbeResult{}, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	observer.AttemptStarted(endpoints[0])
	observer.AttemptFinished(domain.ProbeAttempt{Endpoint: endpoints[0], StatusCode: 200})
	return p.result, nil
}

type harness struct {
	dir       string
	cfg       *config.Config
	prompter  *fakePrompter
	prober    interfaces.Prober
	collector *metrics.Collector
	out       bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.WorkDir = dir
	cfg.ExecutableCandidates = []string{"xray", "v2ray"}
	cfg.SettleDelay = 200 * time.Millisecond
	cfg.StopTimeout = time.Second
	cfg.RerunTimeout = 300 * time.Millisecond
	cfg.Probe.Timeout = time.Second
	cfg.Probe.Pause = 10 * time.Millisecond

	return &harness{
		dir:       dir,
		cfg:       &cfg,
		prompter:  &fakePrompter{port: freePort(t), link: testLink},
		collector: metrics.NewCollector(zap.NewNop()),
	}
}

func (h *harness) writeXray(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(h.dir, "xray")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
}

func (h *harness) run(t *testing.T, ctx context.Context) (*domain.Diagnosis, error) {
	t.Helper()

	logger := zap.NewNop()
	prober := h.prober
	if prober == nil {
		prober = probe.NewProber(h.cfg, probe.NewSOCKSTransport(), h.collector, logger)
	}

	runner := NewRunner(Params{
		Config:     h.cfg,
		Logger:     logger,
		Prompter:   h.prompter,
		Locator:    xray.NewLocator(h.cfg, logger),
		Store:      xray.NewConfigStore(h.cfg, logger),
		Supervisor: xray.NewSupervisor(h.cfg, logger),
		Prober:     prober,
		Reporter:   report.NewReporter(report.Options{Writer: &h.out, NoColor: true}),
		Metrics:    h.collector,
	})
	return runner.Run(ctx)
}

func (h *harness) assertNoConfigLeft(t *testing.T) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(h.dir, "xray_test_*.json"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func geoServer(t *testing.T, status int, body string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server.URL + "/geoip"
}

func TestRunParseFailure(t *testing.T) {
	h := newHarness(t)
	h.prompter.link = "trojan://secret@example.com:443"

	diag, err := h.run(t, context.Background())
	require.NoError(t, err)

	assert.False(t, diag.Success)
	assert.Equal(t, domain.KindParse, diag.FailedStep)
	assert.Contains(t, h.out.String(), "ABORTED at step: parse")
	assert.Equal(t, domain.StopNotStarted, diag.Stop)
	h.assertNoConfigLeft(t)
}

func TestRunInvalidPort(t *testing.T) {
	h := newHarness(t)
	h.prompter.portErr = domain.NewStepError(domain.KindInput, "port 80 is outside 1024-65535", prompt.ErrInvalidPort)

	diag, err := h.run(t, context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.KindInput, diag.FailedStep)
	assert.Contains(t, h.out.String(), "outside 1024-65535")
}

func TestRunClosedInput(t *testing.T) {
	h := newHarness(t)
	h.prompter.link = ""

	diag, err := h.run(t, context.Background())
	require.ErrorIs(t, err, prompt.ErrInputClosed)
	assert.Equal(t, domain.ErrorKind(""), diag.FailedStep)
	assert.NotContains(t, h.out.String(), "ABORTED")
}

func TestRunExecutableNotFound(t *testing.T) {
	h := newHarness(t)
	h.prompter.path = filepath.Join(h.dir, "missing", "xray")

	diag, err := h.run(t, context.Background())
	require.NoError(t, err)

	assert.True(t, h.prompter.asked)
	assert.Equal(t, domain.KindLocate, diag.FailedStep)
	assert.ErrorIs(t, diag.Err, xray.ErrExecutableNotFound)
	assert.Contains(t, h.out.String(), "file not found")
	assert.Contains(t, h.out.String(), "ABORTED at step: locate")
	h.assertNoConfigLeft(t)
}

func TestRunEarlyExit(t *testing.T) {
	h := newHarness(t)
	h.writeXray(t, "echo 'Failed to start: invalid config' >&2\nexit 23")
	prober := &fakeProber{}
	h.prober = prober

	diag, err := h.run(t, context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.KindLaunch, diag.FailedStep)
	assert.Zero(t, prober.calls)
	assert.Nil(t, diag.Probe)

	out := h.out.String()
	assert.Contains(t, out, "xray did not start (exit code 23)")
	assert.Contains(t, out, "STDERR: Failed to start: invalid config")
	assert.Contains(t, out, "Return code: 23")
	h.assertNoConfigLeft(t)
}

func TestRunAllProbesFail(t *testing.T) {
	h := newHarness(t)
	h.writeXray(t, "exec sleep 30")
	h.cfg.Probe.Endpoints = []string{
		geoServer(t, http.StatusServiceUnavailable, "busy"),
		fmt.Sprintf("http://127.0.0.1:%d/geoip", freePort(t)),
	}

	diag, err := h.run(t, context.Background())
	require.NoError(t, err)

	assert.False(t, diag.Success)
	assert.Equal(t, domain.KindProbe, diag.FailedStep)
	require.NotNil(t, diag.Probe)
	assert.True(t, diag.Probe.Proxied)
	require.Len(t, diag.Probe.Attempts, 2)
	for _, attempt := range diag.Probe.Attempts {
		assert.False(t, attempt.Succeeded())
	}
	assert.Equal(t, domain.StopGraceful, diag.Stop)

	out := h.out.String()
	assert.Contains(t, out, "DIAGNOSTIC FOUND PROBLEMS")
	for _, cause := range report.LikelyCauses {
		assert.Contains(t, out, cause)
	}
	assert.Contains(t, out, "[+] xray stopped")
	assert.Contains(t, out, "[*] Probe attempts:")
	for _, endpoint := range h.cfg.Endpoints() {
		assert.Contains(t, out, fmt.Sprintf("    %s: 1 attempt, 0 succeeded, ", endpoint.Name))
	}
	assert.Less(t, strings.Index(out, "Probe attempts:"), strings.Index(out, "DIAGNOSTIC FOUND PROBLEMS"))
	h.assertNoConfigLeft(t)
}

func TestRunSuccess(t *testing.T) {
	h := newHarness(t)
	h.writeXray(t, "exec sleep 30")
	h.prober = &fakeProber{result: &domain.ProbeResult{
		Success:    true,
		Proxied:    true,
		StatusCode: 200,
		Endpoint:   domain.Endpoint{Name: "api.ip.sb"},
		Geo: domain.GeoInfo{
			IP: "203.0.113.7", Country: "Germany", City: "Frankfurt", ISP: "Example", Timezone: "Europe/Berlin",
		},
	}}

	diag, err := h.run(t, context.Background())
	require.NoError(t, err)

	assert.True(t, diag.Success)
	assert.Equal(t, domain.ErrorKind(""), diag.FailedStep)
	assert.Equal(t, domain.StopGraceful, diag.Stop)
	assert.NotEmpty(t, diag.ConfigPath)
	assert.Greater(t, diag.Duration, time.Duration(0))

	out := h.out.String()
	assert.Contains(t, out, "Server:   example.com:443")
	assert.Contains(t, out, "Remark:   Frankfurt")
	assert.NotContains(t, out, "not a canonical UUID")
	assert.Contains(t, out, "203.0.113.7")
	assert.Contains(t, out, "DIAGNOSTIC PASSED")
	h.assertNoConfigLeft(t)
}

func TestRunDirectProbe(t *testing.T) {
	h := newHarness(t)
	h.writeXray(t, "exec sleep 30")
	h.prompter.link = "vless://not-a-uuid@example.com:443"
	h.cfg.Probe.Endpoints = []string{geoServer(t, http.StatusOK, `{"ip":"198.51.100.1"}`)}
	h.prober = probe.NewProber(h.cfg, probe.NewDirectTransport(), h.collector, zap.NewNop())

	diag, err := h.run(t, context.Background())
	require.NoError(t, err)

	assert.True(t, diag.Success)
	assert.False(t, diag.Probe.Proxied)

	out := h.out.String()
	assert.Contains(t, out, "SOCKS5 dialing is not available")
	assert.Contains(t, out, "not routed through the proxy")
	assert.Contains(t, out, "not a canonical UUID")
	assert.Contains(t, out, "ISP:      N/A")
	assert.Contains(t, out, "Probe attempts:")
	assert.Contains(t, out, fmt.Sprintf("    %s: 1 attempt, 1 succeeded, ", h.cfg.Endpoints()[0].Name))
}

func TestRunStopDetails(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		delay    time.Duration
		validate func(*testing.T, *domain.Diagnosis, string)
	}{
		{
			name:   "Graceful",
			script: "exec sleep 30",
			validate: func(t *testing.T, diag *domain.Diagnosis, out string) {
				assert.Equal(t, domain.StopGraceful, diag.Stop)
				assert.Contains(t, out, "[+] xray stopped\n")
				assert.NotContains(t, out, "killed after")
				assert.NotContains(t, out, "already exited")
			},
		},
		{
			name:   "Forced",
			script: "trap '' TERM\nwhile true; do sleep 0.1; done",
			validate: func(t *testing.T, diag *domain.Diagnosis, out string) {
				assert.Equal(t, domain.StopForced, diag.Stop)
				assert.Contains(t, out, "[+] xray stopped\n    killed after it ignored the stop request\n")
			},
		},
		{
			name:   "Already exited",
			script: "sleep 0.4\nexit 7",
			delay:  1500 * time.Millisecond,
			validate: func(t *testing.T, diag *domain.Diagnosis, out string) {
				assert.Equal(t, domain.StopExited, diag.Stop)
				assert.Contains(t, out, "[+] xray stopped\n    it had already exited (code 7)\n")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.writeXray(t, tt.script)
			h.prober = &fakeProber{delay: tt.delay, result: &domain.ProbeResult{
				Success:  true,
				Proxied:  true,
				Endpoint: domain.Endpoint{Name: "api.ip.sb"},
			}}

			diag, err := h.run(t, context.Background())
			require.NoError(t, err)
			assert.True(t, diag.Success)
			tt.validate(t, diag, h.out.String())
			h.assertNoConfigLeft(t)
		})
	}
}

func TestRunCancelledDuringProbe(t *testing.T) {
	h := newHarness(t)
	h.writeXray(t, "exec sleep 30")
	h.prober = &fakeProber{block: true}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(500*time.Millisecond, cancel)

	diag, err := h.run(t, ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StopGraceful, diag.Stop)
	h.assertNoConfigLeft(t)
}
