package tapz

import (
	"context"
)

// Apply creates a Tap from an operation that replaces the running value or
// fails. A failure stops the waterfall: no later tap runs and the caller
// receives an *Error[T] wrapping the returned error.
//
// Example:
//
//	parse := tapz.Apply("parse", func(_ context.Context, raw string, _ []any) (string, error) {
//	    if raw == "" {
//	        return "", errors.New("empty source")
//	    }
//	    return strings.TrimSpace(raw), nil
//	})
func Apply[T any](name Name, fn func(context.Context, T, []any) (T, error)) Tap[T] {
	return NewTap(name, func(ctx context.Context, current T, rest []any) (Result[T], error) {
		result, err := fn(ctx, current, rest)
		if err != nil {
			return Keep[T](), err
		}
		return Replace(result), nil
	})
}
