package app

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"xray-ip-diag/internal/common"
	"xray-ip-diag/internal/report"
)

// DefaultOptions returns the options used by the command line entry point:
// the terminal for input and colored output.
func DefaultOptions(logger *zap.Logger) []common.Option {
	return []common.Option{
		common.WithLogger(logger),
		common.WithInput(os.Stdin),
		common.WithOutput(report.Setup(false)),
	}
}

// NewLogger builds a console logger on stderr that stays quiet unless
// something goes wrong, so it does not interleave with the report.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
