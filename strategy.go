package tapz

import (
	"context"
	"fmt"
)

// Strategy names the combining logic a Routine was compiled with.
type Strategy string

const (
	// StrategyZeroTaps returns the seed without invoking anything.
	StrategyZeroTaps Strategy = "zero-taps"
	// StrategyOneTap invokes the only tap once, without a loop.
	StrategyOneTap Strategy = "one-tap"
	// StrategyManyTaps folds the running value through every tap.
	StrategyManyTaps Strategy = "many-taps"
	// StrategyIntercepted fires interceptor observers and transforms around
	// the fold. It is used whenever any interceptor is registered.
	StrategyIntercepted Strategy = "intercepted"
)

// SelectStrategy picks the combining strategy for a shape.
// Interceptor presence dominates the tap count.
func SelectStrategy(d Descriptor) (Strategy, error) {
	if err := validateArgs(d.Args); err != nil {
		return "", err
	}
	switch {
	case d.TapCount < 0:
		return "", fmt.Errorf("%w: negative tap count %d", ErrInternal, d.TapCount)
	case d.Intercepted:
		return StrategyIntercepted, nil
	case d.TapCount == 0:
		return StrategyZeroTaps, nil
	case d.TapCount == 1:
		return StrategyOneTap, nil
	default:
		return StrategyManyTaps, nil
	}
}

// combiner produces the outcome of one invocation. It never touches state
// outside the invocation: the running value lives on its stack.
type combiner[T any] func(*Routine[T], context.Context, T, []any) (T, error)

func combinerFor[T any](s Strategy) (combiner[T], error) {
	switch s {
	case StrategyZeroTaps:
		return (*Routine[T]).combineZero, nil
	case StrategyOneTap:
		return (*Routine[T]).combineOne, nil
	case StrategyManyTaps:
		return (*Routine[T]).combineMany, nil
	case StrategyIntercepted:
		return (*Routine[T]).combineIntercepted, nil
	default:
		return nil, fmt.Errorf("%w: unsupported strategy %q", ErrInternal, s)
	}
}

func (*Routine[T]) combineZero(_ context.Context, seed T, _ []any) (T, error) {
	return seed, nil
}

func (r *Routine[T]) combineOne(ctx context.Context, seed T, rest []any) (T, error) {
	res, err := r.invokeTap(ctx, 0, r.taps[0], seed, rest)
	if err != nil {
		var zero T
		return zero, err
	}
	if v, ok := res.Get(); ok {
		return v, nil
	}
	return seed, nil
}

func (r *Routine[T]) combineMany(ctx context.Context, seed T, rest []any) (T, error) {
	current := seed
	for i, tap := range r.taps {
		res, err := r.invokeTap(ctx, i, tap, current, rest)
		if err != nil {
			var zero T
			return zero, err
		}
		if v, ok := res.Get(); ok {
			current = v
		}
	}
	return current, nil
}

func (r *Routine[T]) combineIntercepted(ctx context.Context, seed T, rest []any) (T, error) {
	var zero T
	for _, ic := range r.interceptors {
		if ic.Call == nil {
			continue
		}
		if err := r.invokeCall(ctx, ic, seed, rest); err != nil {
			return zero, err
		}
	}

	current := seed
	for i, tap := range r.taps {
		effective := tap
		for _, ic := range r.interceptors {
			if ic.Tap == nil {
				continue
			}
			var err error
			effective, err = r.invokeTransform(ctx, i, ic, effective, current)
			if err != nil {
				return zero, err
			}
		}
		res, err := r.invokeTap(ctx, i, effective, current, rest)
		if err != nil {
			return zero, err
		}
		if v, ok := res.Get(); ok {
			current = v
		}
	}
	return current, nil
}
