package scans

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when a scan does not exist.
	ErrNotFound = errors.New("scan not found")
	// ErrInvalidTransition guards the status table and progress monotonicity.
	ErrInvalidTransition = errors.New("invalid scan transition")
	// ErrNotComplete guards read models that only exist for finished scans.
	ErrNotComplete = errors.New("scan not complete")
)

// ValidationError is a malformed creation input. The scan is never created.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PipelineFatalError terminates a scan; Message becomes the scan's errorMessage.
type PipelineFatalError struct {
	Phase   Status
	Message string
	Err     error
}

func (e *PipelineFatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PipelineFatalError) Unwrap() error { return e.Err }

// Fatal is a shorthand used by the orchestrator.
func Fatal(phase Status, err error, format string, args ...any) *PipelineFatalError {
	return &PipelineFatalError{Phase: phase, Message: fmt.Sprintf(format, args...), Err: err}
}
