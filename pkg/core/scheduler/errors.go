package scheduler

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable rejection cases. Callers match these
// with errors.Is and report them without aborting anything else.
var (
	// ErrInvalidOverride is returned when a manual override would double-book
	// a worker or names an unknown slot or worker. No state is mutated.
	ErrInvalidOverride = errors.New("invalid override")

	// ErrInsufficientCompTime is returned when a comp time usage request
	// would drive the worker's balance negative. No state is mutated.
	ErrInsufficientCompTime = errors.New("insufficient comp time balance")

	// ErrInconsistentEquity indicates a reversal could not find the matching
	// prior count. The run is corrupted and must abort.
	ErrInconsistentEquity = errors.New("inconsistent equity state")

	// ErrSwapNotPending is returned when resolving a swap request that has
	// already reached a terminal state.
	ErrSwapNotPending = errors.New("swap request is not pending")
)

// ValidationError reports malformed rule or assignment type configuration.
// It is raised when the scheduler is constructed, before any commit happens.
type ValidationError struct {
	Subject string // assignment type or rule the problem was found on
	Detail  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Subject, e.Detail)
}

func newValidationError(subject, format string, args ...any) *ValidationError {
	return &ValidationError{Subject: subject, Detail: fmt.Sprintf(format, args...)}
}
