package tapz

import (
	"context"
)

// Transform creates a Tap that always replaces the running value.
// Use it when the operation cannot fail and always produces a new value.
//
// If the operation might fail, use Apply. If it only sometimes applies,
// use Mutate.
//
// Example:
//
//	double := tapz.Transform("double", func(_ context.Context, n int, _ []any) int {
//	    return n * 2
//	})
func Transform[T any](name Name, fn func(context.Context, T, []any) T) Tap[T] {
	return NewTap(name, func(ctx context.Context, current T, rest []any) (Result[T], error) {
		return Replace(fn(ctx, current, rest)), nil
	})
}
