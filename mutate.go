package tapz

import (
	"context"
)

// Mutate creates a Tap that replaces the running value only when condition
// holds. When it does not, the tap declines and the running value is kept.
//
// Example:
//
//	clamp := tapz.Mutate("clamp",
//	    func(_ context.Context, n int, _ []any) int { return 100 },
//	    func(_ context.Context, n int, _ []any) bool { return n > 100 },
//	)
func Mutate[T any](name Name, transformer func(context.Context, T, []any) T, condition func(context.Context, T, []any) bool) Tap[T] {
	return NewTap(name, func(ctx context.Context, current T, rest []any) (Result[T], error) {
		if condition(ctx, current, rest) {
			return Replace(transformer(ctx, current, rest)), nil
		}
		return Keep[T](), nil
	})
}
