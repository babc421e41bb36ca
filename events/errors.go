package events

import "fmt"

// Error is the named error kind used as the sentinel for each failure class.
type Error struct {
	Name    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// Sentinels for errors.Is.
var (
	ErrPrecondition = &Error{Name: "PreconditionError", Message: "precondition failed"}
	ErrCycle        = &Error{Name: "CycleError", Message: "cycle detected"}
	ErrRange        = &Error{Name: "RangeError", Message: "invalid argument"}
)

// PreconditionError is returned when a required default handler was never supplied.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPrecondition.Name, e.Message)
}

// Unwrap returns ErrPrecondition.
func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// CycleError is the panic value raised when an ancestor chain is longer than
// the configured ceiling. It only happens when parents form a cycle or the
// hierarchy is misconfigured.
type CycleError struct {
	Limit int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: ancestor chain exceeds %d hops", ErrCycle.Name, e.Limit)
}

// Unwrap returns ErrCycle.
func (e *CycleError) Unwrap() error { return ErrCycle }

// RangeError is returned for malformed registration arguments.
type RangeError struct {
	Message string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRange.Name, e.Message)
}

// Unwrap returns ErrRange.
func (e *RangeError) Unwrap() error { return ErrRange }

// Common error constructors

// NewPreconditionError creates a PreconditionError.
func NewPreconditionError(message string) *PreconditionError {
	return &PreconditionError{Message: message}
}

// NewCycleError creates a CycleError for the given ceiling.
func NewCycleError(limit int) *CycleError {
	return &CycleError{Limit: limit}
}

// NewRangeError creates a RangeError.
func NewRangeError(message string) *RangeError {
	return &RangeError{Message: message}
}
