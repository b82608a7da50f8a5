package xray

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"xray-ip-diag/internal/config"
	"xray-ip-diag/internal/domain"
)

var ErrExecutableNotFound = errors.New("file not found")

// PathPrompt asks the user for an explicit executable path.
type PathPrompt func(ctx context.Context) (string, error)

// Locator finds the proxy executable among conventional names in the
// working directory.
type Locator struct {
	dir        string
	candidates []string
	logger     *zap.Logger
}

func NewLocator(cfg *config.Config, logger *zap.Logger) *Locator {
	return &Locator{
		dir:        cfg.WorkDir,
		candidates: cfg.ExecutableCandidates,
		logger:     logger.With(zap.String("component", "locator")),
	}
}

func (l *Locator) Candidates() []string {
	return l.candidates
}

// Locate returns the first existing candidate. When none exists and prompt
// is not nil, the path it returns is validated instead.
func (l *Locator) Locate(ctx context.Context, prompt PathPrompt) (string, error) {
	for _, name := range l.candidates {
		path := filepath.Join(l.dir, name)
		if isFile(path) {
			l.logger.Debug("found executable", zap.String("path", path))
			return path, nil
		}
	}

	if prompt == nil {
		return "", domain.NewStepError(domain.KindLocate,
			fmt.Sprintf("none of %s found in %s", strings.Join(l.candidates, ", "), l.dir),
			ErrExecutableNotFound)
	}

	custom, err := prompt(ctx)
	if err != nil {
		return "", err
	}

	if custom == "" || !isFile(custom) {
		return "", domain.NewStepError(domain.KindLocate,
			fmt.Sprintf("%s: %s", ErrExecutableNotFound, custom),
			ErrExecutableNotFound)
	}

	if abs, err := filepath.Abs(custom); err == nil {
		custom = abs
	}
	return custom, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
