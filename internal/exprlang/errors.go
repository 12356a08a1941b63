package exprlang

import "fmt"

// FatalError is raised for the fatal tier of failure: parse errors,
// unknown functions, division by zero, and indexing a non-series.
// These always surface to the caller rather than resolving to a
// missing value.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string {
	return e.Message
}

// NewFatalError constructs a FatalError.
func NewFatalError(format string, args ...any) *FatalError {
	return &FatalError{Message: fmt.Sprintf(format, args...)}
}
