package xray

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"xray-ip-diag/internal/config"
	"xray-ip-diag/internal/domain"
)

// ConfigStore writes generated process configurations into the working
// directory and keeps track of them until they are removed.
type ConfigStore struct {
	dir     string
	logger  *zap.Logger
	mu      sync.Mutex
	written map[string]struct{}
}

func NewConfigStore(cfg *config.Config, logger *zap.Logger) *ConfigStore {
	return &ConfigStore{
		dir:     cfg.WorkDir,
		logger:  logger.With(zap.String("component", "config-store")),
		written: make(map[string]struct{}),
	}
}

// FileName is deterministic per port so repeated runs overwrite old artifacts.
func FileName(port int) string {
	return fmt.Sprintf("xray_test_%d.json", port)
}

func (s *ConfigStore) Path(port int) string {
	return filepath.Join(s.dir, FileName(port))
}

// Write serializes cfg, writes it and reads it back to make sure the file
// on disk is well-formed.
func (s *ConfigStore) Write(cfg *Config, port int) (string, error) {
	path := s.Path(port)

	data, err := Marshal(cfg)
	if err != nil {
		return "", domain.NewStepError(domain.KindConfigIO, "failed to marshal config", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", domain.NewStepError(domain.KindConfigIO, "failed to create config directory", err)
	}

	s.mu.Lock()
	s.written[path] = struct{}{}
	s.mu.Unlock()

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", domain.NewStepError(domain.KindConfigIO, "failed to write config file", err)
	}

	if _, err := s.Load(path); err != nil {
		return "", domain.NewStepError(domain.KindConfigIO, "config file is not valid JSON", err)
	}

	s.logger.Debug("generated xray config",
		zap.String("path", path),
		zap.String("config", string(data)))

	return path, nil
}

func (s *ConfigStore) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// Remove deletes a generated file. A file that is already gone is not an error.
func (s *ConfigStore) Remove(path string) error {
	s.mu.Lock()
	delete(s.written, path)
	s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Debug("failed to remove config file",
			zap.String("path", path),
			zap.Error(err))
		return err
	}
	return nil
}

// RemoveAll deletes every file written by the store that is still tracked.
func (s *ConfigStore) RemoveAll() {
	s.mu.Lock()
	paths := make([]string, 0, len(s.written))
	for path := range s.written {
		paths = append(paths, path)
	}
	s.mu.Unlock()

	for _, path := range paths {
		_ = s.Remove(path)
	}
}

// Marshal renders a config as indented JSON without HTML escaping.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
