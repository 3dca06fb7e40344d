package tapz

import "fmt"

// Name is a type alias for hook, tap, interceptor and argument names.
// Using this type encourages storing names as constants rather than
// using inline strings throughout your code.
//
// Example:
//
//	const (
//	    CompilationHook Name = "compilation"
//	    MinifyTap       Name = "minify"
//	)
type Name = string

// Convention selects how a compiled Routine delivers its outcome.
// The convention never changes which taps run or what they produce,
// only how the result (or failure) reaches the caller.
type Convention int

const (
	// Sync returns the outcome directly from Routine.Call.
	Sync Convention = iota
	// Async delivers the outcome to a trailing completion callback.
	Async
	// PromiseStyle defers the work by one scheduling turn and settles a Promise.
	PromiseStyle
)

// Conventions lists every supported convention in declaration order.
var Conventions = []Convention{Sync, Async, PromiseStyle}

// String returns the lowercase convention name used in spans and events.
func (c Convention) String() string {
	switch c {
	case Sync:
		return "sync"
	case Async:
		return "async"
	case PromiseStyle:
		return "promise"
	default:
		return fmt.Sprintf("convention(%d)", int(c))
	}
}

// ParseConvention maps a convention name back to its Convention.
func ParseConvention(s string) (Convention, error) {
	for _, c := range Conventions {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown convention %q", ErrConfiguration, s)
}

// Callback receives the outcome of an Async invocation.
// Because every tap is synchronous, a successful call always invokes the
// callback with a nil error before CallAsync returns.
type Callback[T any] func(err error, value T)

// Descriptor is the shape a Routine is compiled for.
//
// TapCount and Intercepted must agree with the taps and interceptors handed
// to Compile; Waterfall derives them from its own registrations.
type Descriptor struct {
	Args        []Name
	TapCount    int
	Intercepted bool
	Convention  Convention
}

// String renders the descriptor for logs and the explain command.
func (d Descriptor) String() string {
	return fmt.Sprintf("args=%v taps=%d intercepted=%t convention=%s",
		d.Args, d.TapCount, d.Intercepted, d.Convention)
}
