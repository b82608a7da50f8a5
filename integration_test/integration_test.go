//go:build !windows

package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"xray-ip-diag/internal/config"
	"xray-ip-diag/internal/domain"
	"xray-ip-diag/internal/link"
	"xray-ip-diag/internal/xray"
)

const shareLink = "vless://b831381d-6324-4d53-ad4f-8cda48b30811@example.com:443?type=grpc&serviceName=tun&security=reality&pbk=key&sid=01"

// Helper functions

func setupWorkDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	script := "#!/bin/sh\ntrap '' TERM\nwhile true; do sleep 0.1; done\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "xray"), []byte(script), 0755))
	return dir
}

type components struct {
	fx.In

	Config     *config.Config
	Locator    *xray.Locator
	Store      *xray.ConfigStore
	Supervisor *xray.Supervisor
}

func newApp(t *testing.T, dir string, populate *components) *fxtest.App {
	t.Helper()
	return fxtest.New(t,
		config.Module,
		xray.Module,
		fx.Provide(
			func() *zap.Logger { return zap.NewNop() },
			func() config.WorkDir { return config.WorkDir(dir) },
		),
		fx.Decorate(func(cfg *config.Config) *config.Config {
			cfg.SettleDelay = 200 * time.Millisecond
			cfg.StopTimeout = 300 * time.Millisecond
			return cfg
		}),
		fx.Populate(populate),
	)
}

// Tests

func TestStopHooksReleaseAbandonedRun(t *testing.T) {
	dir := setupWorkDir(t)

	var c components
	app := newApp(t, dir, &c)
	app.RequireStart()

	outbound, err := link.Parse(shareLink)
	require.NoError(t, err)

	executable, err := c.Locator.Locate(context.Background(), nil)
	require.NoError(t, err)

	configPath, err := c.Store.Write(xray.Assemble(*outbound, 10999, c.Config.LogLevel), 10999)
	require.NoError(t, err)
	assert.FileExists(t, configPath)

	process, err := c.Supervisor.Start(context.Background(), executable, configPath)
	require.NoError(t, err)
	require.False(t, process.Exited())

	// The run is abandoned here; the application stop must clean up.
	app.RequireStop()

	assert.True(t, process.Exited())
	assert.Equal(t, domain.StopForced, c.Supervisor.Stop(process))
	assert.NoFileExists(t, configPath)
}

func TestGeneratedConfigMatchesLink(t *testing.T) {
	dir := setupWorkDir(t)

	var c components
	app := newApp(t, dir, &c)
	app.RequireStart()
	defer app.RequireStop()

	outbound, err := link.Parse(shareLink)
	require.NoError(t, err)

	path, err := c.Store.Write(xray.Assemble(*outbound, 10998, ""), 10998)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "xray_test_10998.json"), path)

	loaded, err := c.Store.Load(path)
	require.NoError(t, err)

	stream := loaded.Outbounds[0].StreamSettings
	assert.Equal(t, xray.NetworkGRPC, stream.Network)
	assert.Equal(t, "tun", stream.GRPCSettings.ServiceName)
	assert.Equal(t, xray.SecurityReality, stream.Security)
	assert.Equal(t, "key", stream.RealitySettings.PublicKey)
	assert.Equal(t, "01", stream.RealitySettings.ShortID)
	assert.Equal(t, "chrome", stream.RealitySettings.Fingerprint)
	assert.Equal(t, "warning", loaded.Log.LogLevel)
	assert.Equal(t, 10998, loaded.Inbounds[0].Port)
}
