package transformer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidStep marks a malformed step description: missing action, a
	// required key absent, an unknown enumerated value or a bad regex.
	ErrInvalidStep = errors.New("invalid step")

	// ErrColumnNotFound marks a step naming a column absent from the header.
	ErrColumnNotFound = errors.New("column not found")

	// ErrTypeCast marks a value that failed a cast gate. It never aborts a
	// run; the row is discarded with the error text as its reason.
	ErrTypeCast = errors.New("type cast failure")
)

// StepError names the step that failed to compile. It unwraps to one of the
// sentinels above.
type StepError struct {
	Index  int
	Action string
	Err    error
}

func (e *StepError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("step %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Action, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// CastError reports a value that could not be parsed as the requested type.
// Its message doubles as the quarantine reason.
type CastError struct {
	Value string
	Type  string
}

func (e *CastError) Error() string {
	if e.Value == "" {
		return "Cannot convert empty string"
	}
	return fmt.Sprintf("Cannot convert '%s' to %s", e.Value, e.Type)
}

func (e *CastError) Is(target error) bool { return target == ErrTypeCast }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidStep}, args...)...)
}
