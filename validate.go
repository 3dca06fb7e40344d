package tapz

import "fmt"

// validateArgs enforces that a waterfall hook has a seed argument.
func validateArgs(args []Name) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: waterfall hooks must have at least one argument", ErrConfiguration)
	}
	return nil
}

// validateTap rejects taps that can never be invoked.
func validateTap[T any](tap Tap[T]) error {
	if tap.name == "" {
		return fmt.Errorf("%w: tap name must not be empty", ErrConfiguration)
	}
	if tap.fn == nil {
		return fmt.Errorf("%w: tap %q has no handler", ErrConfiguration, tap.name)
	}
	return nil
}

// validateArity checks an invocation against the argument list. rest holds
// everything after the seed.
func validateArity(args []Name, rest []any) error {
	if want := len(args) - 1; len(rest) != want {
		return fmt.Errorf("%w: expected %d arguments %v, got %d", ErrArity, len(args), args, len(rest)+1)
	}
	return nil
}

// unsupportedTap is returned by every asynchronous registration entry point.
// Each tap's value is needed before the next tap runs, so a waterfall hook
// only accepts synchronous taps.
func unsupportedTap(hook, method Name) error {
	return fmt.Errorf("%w: %s is not supported on waterfall hook %q", ErrUnsupported, method, hook)
}
