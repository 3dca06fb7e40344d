package tapz

import (
	"fmt"
	"slices"
)

// Compile produces a Routine specialized for d.
//
// The strategy is chosen once from the shape (see SelectStrategy) and the
// convention fixes which invocation method the routine accepts. taps and
// interceptors are copied, so later changes to the caller's slices do not
// affect the routine; recompile whenever the registrations change.
//
// Compile fails with ErrConfiguration when d.Args is empty, and with
// ErrInternal when the convention is unknown or d disagrees with the taps
// and interceptors supplied.
//
// Example:
//
//	routine, err := tapz.Compile(tapz.Descriptor{
//	    Args:       []tapz.Name{"a"},
//	    TapCount:   len(taps),
//	    Convention: tapz.Sync,
//	}, taps, nil)
//	if err != nil {
//	    return err
//	}
//	result, err := routine.Call(ctx, 5)
func Compile[T any](d Descriptor, taps []Tap[T], interceptors []Interceptor[T]) (*Routine[T], error) {
	return compile(d, taps, interceptors, "", nil)
}

func compile[T any](d Descriptor, taps []Tap[T], interceptors []Interceptor[T], hook Name, inst *instruments) (*Routine[T], error) {
	if err := validateArgs(d.Args); err != nil {
		return nil, err
	}
	if d.TapCount != len(taps) {
		return nil, fmt.Errorf("%w: descriptor declares %d taps, %d supplied", ErrInternal, d.TapCount, len(taps))
	}
	if d.Intercepted != (len(interceptors) > 0) {
		return nil, fmt.Errorf("%w: descriptor intercepted=%t, %d interceptors supplied", ErrInternal, d.Intercepted, len(interceptors))
	}
	if err := validConvention(d.Convention); err != nil {
		return nil, err
	}

	strategy, err := SelectStrategy(d)
	if err != nil {
		return nil, err
	}
	combine, err := combinerFor[T](strategy)
	if err != nil {
		return nil, err
	}

	return &Routine[T]{
		inst:         inst,
		combine:      combine,
		hook:         hook,
		strategy:     strategy,
		args:         slices.Clone(d.Args),
		taps:         slices.Clone(taps),
		interceptors: slices.Clone(interceptors),
		convention:   d.Convention,
	}, nil
}
