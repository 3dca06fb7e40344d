package tapz

import "context"

// Result is the outcome of a single tap: either a replacement for the
// running value or "no change". The zero Result means no change, so a tap
// that has nothing to contribute can simply return Result[T]{}.
type Result[T any] struct {
	value   T
	changed bool
}

// Replace returns a Result that replaces the running value with v.
func Replace[T any](v T) Result[T] {
	return Result[T]{value: v, changed: true}
}

// Keep returns the "no change" Result.
func Keep[T any]() Result[T] {
	return Result[T]{}
}

// Get returns the replacement value and whether there is one.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.changed
}

// Changed reports whether the tap produced a replacement value.
func (r Result[T]) Changed() bool {
	return r.changed
}

// TapFunc is the handler behind a Tap. It receives the running value and
// the remaining invocation arguments (everything after the seed).
type TapFunc[T any] func(ctx context.Context, current T, rest []any) (Result[T], error)

// Tap is a named, immutable handler registered on a waterfall hook.
//
// Taps are values: WithStage and WithFunc return modified copies, which is
// what interceptor transforms use to substitute the handler that runs.
//
// Example:
//
//	addOne := tapz.NewTap("add-one", func(_ context.Context, n int, _ []any) (tapz.Result[int], error) {
//	    return tapz.Replace(n + 1), nil
//	})
type Tap[T any] struct {
	fn    TapFunc[T]
	name  Name
	stage int
}

// NewTap creates a Tap from a raw TapFunc.
// Prefer the adapters (Transform, Apply, Effect, Mutate, Enrich) when one fits.
func NewTap[T any](name Name, fn TapFunc[T]) Tap[T] {
	return Tap[T]{name: name, fn: fn}
}

// Name returns the tap name.
func (t Tap[T]) Name() Name {
	return t.name
}

// Stage returns the ordering stage. Lower stages run first.
func (t Tap[T]) Stage() int {
	return t.stage
}

// Func returns the underlying handler.
func (t Tap[T]) Func() TapFunc[T] {
	return t.fn
}

// WithStage returns a copy of the tap registered at the given stage.
func (t Tap[T]) WithStage(stage int) Tap[T] {
	t.stage = stage
	return t
}

// WithFunc returns a copy of the tap running fn instead of its handler.
func (t Tap[T]) WithFunc(fn TapFunc[T]) Tap[T] {
	t.fn = fn
	return t
}

// Run invokes the tap handler directly.
func (t Tap[T]) Run(ctx context.Context, current T, rest []any) (Result[T], error) {
	return t.fn(ctx, current, rest)
}
