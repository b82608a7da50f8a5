package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name        string
		dir         func(t *testing.T) WorkDir
		expectError bool
		validate    func(*testing.T, *Config)
	}{
		{
			name: "Explicit directory",
			dir: func(t *testing.T) WorkDir {
				return WorkDir(t.TempDir())
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultPort, cfg.DefaultPort)
				assert.Equal(t, 2*time.Second, cfg.SettleDelay)
				assert.Equal(t, 2*time.Second, cfg.StopTimeout)
				assert.Equal(t, 10*time.Second, cfg.Probe.Timeout)
				assert.Len(t, cfg.Probe.Endpoints, 2)
				assert.Contains(t, cfg.ExecutableCandidates[0], "xray")
			},
		},
		{
			name: "Working directory fallback",
			dir: func(t *testing.T) WorkDir {
				return ""
			},
			validate: func(t *testing.T, cfg *Config) {
				wd, err := os.Getwd()
				require.NoError(t, err)
				assert.Equal(t, wd, cfg.WorkDir)
			},
		},
		{
			name: "Missing directory",
			dir: func(t *testing.T) WorkDir {
				return WorkDir(filepath.Join(t.TempDir(), "missing"))
			},
			expectError: true,
		},
		{
			name: "File instead of directory",
			dir: func(t *testing.T) WorkDir {
				path := filepath.Join(t.TempDir(), "file")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return WorkDir(path)
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfig(tt.dir(t))
			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "Defaults",
			modify: func(c *Config) {},
		},
		{
			name:    "Endpoint without scheme",
			modify:  func(c *Config) { c.Probe.Endpoints = []string{"api.ip.sb/geoip"} },
			wantErr: "endpoint",
		},
		{
			name:    "Endpoint with unsupported scheme",
			modify:  func(c *Config) { c.Probe.Endpoints = []string{"ftp://api.ip.sb/geoip"} },
			wantErr: "endpoint",
		},
		{
			name:    "No endpoints",
			modify:  func(c *Config) { c.Probe.Endpoints = nil },
			wantErr: "required",
		},
		{
			name:    "Default port too low",
			modify:  func(c *Config) { c.DefaultPort = 80 },
			wantErr: "min",
		},
		{
			name:    "Zero settle delay",
			modify:  func(c *Config) { c.SettleDelay = 0 },
			wantErr: "gt",
		},
		{
			name:    "Unknown log level",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: "oneof",
		},
		{
			name:    "Empty candidate",
			modify:  func(c *Config) { c.ExecutableCandidates = []string{""} },
			wantErr: "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.WorkDir = t.TempDir()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort(1024))
	assert.NoError(t, ValidatePort(9999))
	assert.NoError(t, ValidatePort(65535))
	assert.Error(t, ValidatePort(1023))
	assert.Error(t, ValidatePort(65536))
	assert.Error(t, ValidatePort(0))
}

func TestEndpoints(t *testing.T) {
	cfg := Default()

	endpoints := cfg.Endpoints()
	require.Len(t, endpoints, 2)
	assert.Equal(t, "api.ip.sb", endpoints[0].Name)
	assert.Equal(t, "https://api.ip.sb/geoip", endpoints[0].URL)
	assert.Equal(t, "api-ipv4.ip.sb", endpoints[1].Name)
}

func TestCandidateNames(t *testing.T) {
	assert.Equal(t, []string{"xray.exe", "v2ray.exe"}, candidateNames("windows"))
	assert.Equal(t, []string{"xray", "v2ray"}, candidateNames("linux"))
}
