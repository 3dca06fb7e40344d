package tapz

import (
	"context"
)

// Enrich creates a best-effort Tap. If fn fails the tap declines instead of
// stopping the waterfall, and the running value passes on unchanged.
//
// Use Enrich for optional enhancements such as lookups against a cache
// that may be cold. Use Apply when the failure must be reported.
func Enrich[T any](name Name, fn func(context.Context, T, []any) (T, error)) Tap[T] {
	return NewTap(name, func(ctx context.Context, current T, rest []any) (Result[T], error) {
		enriched, err := fn(ctx, current, rest)
		if err != nil {
			return Keep[T](), nil
		}
		return Replace(enriched), nil
	})
}
