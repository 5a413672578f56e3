package flow

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/svintsoff78/krepko/internal/ir"
	"github.com/svintsoff78/krepko/internal/match"
)

// StatusMismatchError is returned by ExpectStatus when the HTTP status
// differs from the expected one. Body carries the full response body.
type StatusMismatchError struct {
	Expected int
	Received int
	Body     ir.Value
}

// Error implements the error interface.
func (e *StatusMismatchError) Error() string {
	return fmt.Sprintf("Expected status %d, received %d", e.Expected, e.Received)
}

// BodyMismatchError is returned by ExpectBody with the first mismatch found.
type BodyMismatchError struct {
	Mismatch *match.Mismatch
}

// Error implements the error interface.
func (e *BodyMismatchError) Error() string {
	return e.Mismatch.Message
}

// StepPanicError records a step that panicked with something other than an
// assertion error.
type StepPanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *StepPanicError) Error() string {
	return fmt.Sprintf("step panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *StepPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ErrNoStepBody is recorded for a step declared without a function.
var ErrNoStepBody = errors.New("step has no body")

// IsStatusMismatch returns true if err is or wraps a StatusMismatchError.
func IsStatusMismatch(err error) bool {
	var se *StatusMismatchError
	return errors.As(err, &se)
}

// IsBodyMismatch returns true if err is or wraps a BodyMismatchError.
func IsBodyMismatch(err error) bool {
	var be *BodyMismatchError
	return errors.As(err, &be)
}

// IsAssertion returns true for status and body mismatches, as opposed to
// transport failures or errors raised by step code.
func IsAssertion(err error) bool {
	return IsStatusMismatch(err) || IsBodyMismatch(err)
}

// panicError converts a recovered panic value into the error recorded for the
// step. Assertion errors raised by MustStatus/MustBody, and any other error
// value passed to panic, are kept as-is; runtime faults and non-error values
// become a StepPanicError with the stack attached.
func panicError(r any, stack []byte) error {
	if _, isRuntime := r.(runtime.Error); isRuntime {
		return &StepPanicError{Value: r, Stack: stack}
	}
	if err, ok := r.(error); ok {
		return err
	}
	return &StepPanicError{Value: r, Stack: stack}
}
