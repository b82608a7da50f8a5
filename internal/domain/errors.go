package domain

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the diagnostic step an error belongs to
type ErrorKind string

const (
	KindInput    ErrorKind = "input"
	KindParse    ErrorKind = "parse"
	KindLocate   ErrorKind = "locate"
	KindConfigIO ErrorKind = "config_io"
	KindLaunch   ErrorKind = "launch"
	KindProbe    ErrorKind = "probe"
)

// StepError represents an error that aborted a diagnostic step
type StepError struct {
	Kind    ErrorKind // The step where the error occurred
	Message string    // Human-readable error message
	Err     error     // Original error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func NewStepError(kind ErrorKind, message string, err error) error {
	return &StepError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// IsKind reports whether err carries a StepError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Kind == kind
	}
	return false
}
