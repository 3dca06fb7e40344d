package tapz

import "context"

// Interceptor observes or rewrites how a waterfall hook runs its taps
// without being a tap itself. Every field except Name is optional.
//
//   - Call fires once per invocation, before any tap, with the full
//     argument list. Its only effect is a possible error, which aborts
//     the invocation.
//   - Tap fires once per tap per invocation and returns the tap that
//     actually runs. Transforms of all interceptors are applied in
//     registration order.
//   - Register fires once when a tap is registered (and once for every
//     already registered tap when the interceptor is added). The tap it
//     returns replaces the registered one permanently.
//
// Any interceptor at all makes the compiler pick the intercepted strategy,
// even for zero or one tap, so observers and transforms always fire.
//
// Example:
//
//	audit := tapz.Interceptor[int]{
//	    Name: "audit",
//	    Call: func(_ context.Context, seed int, _ []any) error {
//	        log.Printf("waterfall started with %d", seed)
//	        return nil
//	    },
//	}
type Interceptor[T any] struct {
	Call     func(ctx context.Context, seed T, rest []any) error
	Tap      func(ctx context.Context, tap Tap[T]) (Tap[T], error)
	Register func(tap Tap[T]) (Tap[T], error)
	Name     Name
}

// Wrap returns a tap transform that decorates every tap handler with fn.
// It covers the common case of an interceptor that only wraps handlers.
//
//	timing := tapz.Interceptor[int]{
//	    Name: "timing",
//	    Tap: tapz.Wrap(func(tap tapz.Tap[int], next tapz.TapFunc[int]) tapz.TapFunc[int] {
//	        return func(ctx context.Context, n int, rest []any) (tapz.Result[int], error) {
//	            start := time.Now()
//	            defer func() { record(tap.Name(), time.Since(start)) }()
//	            return next(ctx, n, rest)
//	        }
//	    }),
//	}
func Wrap[T any](fn func(tap Tap[T], next TapFunc[T]) TapFunc[T]) func(context.Context, Tap[T]) (Tap[T], error) {
	return func(_ context.Context, tap Tap[T]) (Tap[T], error) {
		return tap.WithFunc(fn(tap, tap.Func())), nil
	}
}
