package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// WorkDir is the directory searched for the xray binary and used for
// generated configs. Empty means the process working directory.
type WorkDir string

type Config struct {
	WorkDir              string        `validate:"required,dir"`
	DefaultPort          int           `validate:"min=1024,max=65535"`
	ExecutableCandidates []string      `validate:"required,min=1,dive,required"`
	LogLevel             string        `validate:"oneof=debug info warning error none"`
	SettleDelay          time.Duration `validate:"gt=0"`
	StopTimeout          time.Duration `validate:"gt=0"`
	RerunTimeout         time.Duration `validate:"gt=0"`
	Probe                Probe
}

type Probe struct {
	Timeout   time.Duration `validate:"gt=0"`
	Pause     time.Duration `validate:"gte=0"`
	Endpoints []string      `validate:"required,min=1,dive,endpoint"`
}

const (
	DefaultPort = 9999
	MinPort     = 1024
	MaxPort     = 65535
)

// Default returns the settings used by the interactive tool.
func Default() Config {
	return Config{
		DefaultPort:          DefaultPort,
		ExecutableCandidates: candidateNames(runtime.GOOS),
		LogLevel:             "warning",
		SettleDelay:          2 * time.Second,
		StopTimeout:          2 * time.Second,
		RerunTimeout:         3 * time.Second,
		Probe: Probe{
			Timeout: 10 * time.Second,
			Pause:   1 * time.Second,
			Endpoints: []string{
				"https://api.ip.sb/geoip",
				"https://api-ipv4.ip.sb/geoip",
			},
		},
	}
}

// NewConfig creates a new Config instance rooted at dir
func NewConfig(dir WorkDir) (*Config, error) {
	cfg := Default()
	cfg.WorkDir = string(dir)

	if cfg.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error resolving working directory: %w", err)
		}
		cfg.WorkDir = wd
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// ValidatePort checks a listener port chosen by the user
func ValidatePort(port int) error {
	if err := validate.Var(port, fmt.Sprintf("min=%d,max=%d", MinPort, MaxPort)); err != nil {
		return fmt.Errorf("port %d is outside %d-%d", port, MinPort, MaxPort)
	}
	return nil
}

func candidateNames(goos string) []string {
	suffix := ""
	if goos == "windows" {
		suffix = ".exe"
	}
	return []string{"xray" + suffix, "v2ray" + suffix}
}

func newValidator() *validator.Validate {
	v := validator.New()

	// Register custom directory validator
	if err := v.RegisterValidation("dir", validateDir); err != nil {
		panic(fmt.Sprintf("failed to register dir validator: %v", err))
	}
	return v
}

func validateDir(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if info, err := os.Stat(path); err != nil {
		return false
	} else {
		return info.IsDir()
	}
}

// formatValidationErrors formats validation errors into a user-friendly error message
func formatValidationErrors(errors validator.ValidationErrors) error {
	var errMsgs []string
	for _, err := range errors {
		errMsgs = append(errMsgs, fmt.Sprintf(
			"field '%s' failed validation: %s",
			err.Namespace(),
			err.Tag(),
		))
	}
	return fmt.Errorf("validation errors: %v", errMsgs)
}
