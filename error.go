package tapz

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error categories. Errors returned by tapz wrap one of these sentinels, so
// callers classify failures with errors.Is.
var (
	// ErrConfiguration reports an invalid hook or tap definition, such as an
	// empty argument list.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnsupported reports an operation the waterfall hook never allows,
	// such as registering an asynchronous tap.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrInternal reports a compiler defect: an unknown strategy or
	// convention, or a descriptor that disagrees with its registrations.
	ErrInternal = errors.New("internal error")

	// ErrArity reports an invocation with the wrong number of arguments.
	ErrArity = errors.New("argument count mismatch")

	// ErrConvention reports an invocation through a method that does not
	// match the convention the routine was compiled for.
	ErrConvention = errors.New("convention mismatch")

	// ErrNotFound reports a tap name that is not registered.
	ErrNotFound = errors.New("tap not found")
)

// Phase identifies which part of an invocation failed.
type Phase string

const (
	// PhaseCall is an interceptor call observer.
	PhaseCall Phase = "call"
	// PhaseTransform is an interceptor tap transform.
	PhaseTransform Phase = "transform"
	// PhaseTap is the tap handler itself.
	PhaseTap Phase = "tap"
)

// Error is the runtime failure of a tap, call observer or tap transform.
// It records where the waterfall stopped and the running value at that
// point. The running value is discarded by the routine; InputData is kept
// for debugging only.
//
// Stage is the zero-based tap position, or -1 for call observers.
type Error[T any] struct {
	Timestamp time.Time
	InputData T
	Err       error
	Hook      Name
	Name      Name
	Phase     Phase
	Duration  time.Duration
	Stage     int
	Panicked  bool
}

// Error implements the error interface.
func (e *Error[T]) Error() string {
	var location string
	switch e.Phase {
	case PhaseCall:
		location = fmt.Sprintf("interceptor %q call", e.Name)
	case PhaseTransform:
		location = fmt.Sprintf("interceptor %q transform (stage %d)", e.Name, e.Stage)
	default:
		location = fmt.Sprintf("tap %q (stage %d)", e.Name, e.Stage)
	}
	if e.Hook != "" {
		location = fmt.Sprintf("hook %q: %s", e.Hook, location)
	}
	if e.Panicked {
		return fmt.Sprintf("%s panicked after %v: %v", location, e.Duration, e.Err)
	}
	return fmt.Sprintf("%s failed after %v: %v", location, e.Duration, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error[T]) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether the tap failed with a deadline error.
func (e *Error[T]) IsTimeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// IsCanceled reports whether the tap failed with a cancellation error.
func (e *Error[T]) IsCanceled() bool {
	return errors.Is(e.Err, context.Canceled)
}

// panicError carries a recovered panic value.
type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

// guard runs fn and converts a panic into a *panicError.
func guard(fn func() error) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
			panicked = true
		}
	}()
	return false, fn()
}
