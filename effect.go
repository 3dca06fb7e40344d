package tapz

import (
	"context"
)

// Effect creates a Tap for side effects. It never changes the running
// value; returning an error still stops the waterfall.
func Effect[T any](name Name, fn func(context.Context, T, []any) error) Tap[T] {
	return NewTap(name, func(ctx context.Context, current T, rest []any) (Result[T], error) {
		if err := fn(ctx, current, rest); err != nil {
			return Keep[T](), err
		}
		return Keep[T](), nil
	})
}
