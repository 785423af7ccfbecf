package workflow

import (
	"errors"
	"fmt"
)

// ErrUnrecognizedInput reports an input whose type does not match what the
// current step expects, e.g. text where a location share is required. It is
// recovered by re-prompting, same as a validation failure.
var ErrUnrecognizedInput = errors.New("workflow: unrecognized input")

// ErrNoActiveRun reports an Advance call for a user without a run in
// progress. The caller routes such input to the idle menu instead.
var ErrNoActiveRun = errors.New("workflow: no active run")

// ValidationError reports user input failing a step's rule. It is recovered
// locally by re-prompting the same state and never surfaced as a system
// fault.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "workflow: validation: " + e.Reason
}

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
