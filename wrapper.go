package tapz

import (
	"context"
	"fmt"
)

// validConvention rejects conventions outside the closed set.
func validConvention(c Convention) error {
	switch c {
	case Sync, Async, PromiseStyle:
		return nil
	default:
		return fmt.Errorf("%w: unsupported convention %s", ErrInternal, c)
	}
}

func (r *Routine[T]) expect(c Convention) error {
	if r.convention != c {
		return fmt.Errorf("%w: routine compiled for %s, invoked as %s", ErrConvention, r.convention, c)
	}
	return nil
}

// Call invokes a Sync routine and returns the outcome directly.
// seed is the first argument; rest must hold exactly the remaining
// arguments. Any tap failure is returned as an *Error[T].
func (r *Routine[T]) Call(ctx context.Context, seed T, rest ...any) (T, error) {
	if err := r.expect(Sync); err != nil {
		var zero T
		return zero, err
	}
	return r.run(ctx, seed, rest)
}

// CallAsync invokes an Async routine. On success done is called with
// (nil, outcome) before CallAsync returns. Taps are synchronous, so a tap
// failure is returned from CallAsync itself and done is not called.
func (r *Routine[T]) CallAsync(ctx context.Context, seed T, rest []any, done Callback[T]) error {
	if err := r.expect(Async); err != nil {
		return err
	}
	if done == nil {
		return fmt.Errorf("%w: missing completion callback", ErrArity)
	}
	result, err := r.run(ctx, seed, rest)
	if err != nil {
		return err
	}
	done(nil, result)
	return nil
}

// Promise invokes a PromiseStyle routine. The waterfall runs on a new
// goroutine, so every failure, including a panic, surfaces as a rejection
// rather than from this call.
func (r *Routine[T]) Promise(ctx context.Context, seed T, rest ...any) *Promise[T] {
	if err := r.expect(PromiseStyle); err != nil {
		return rejected[T](err)
	}
	p := newPromise[T]()
	go func() {
		var result T
		_, err := guard(func() error {
			var err error
			result, err = r.run(ctx, seed, rest)
			return err
		})
		if err != nil {
			var zero T
			result = zero
		}
		p.settle(result, err)
	}()
	return p
}
