// Package tapz provides waterfall hooks: named extension points whose
// registered handlers ("taps") run in order, each able to replace the
// running value the next one sees.
//
// # Overview
//
// A waterfall hook is declared with an argument list. The first argument
// seeds the running value; every tap receives the running value and the
// remaining arguments and returns a Result: Replace(v) to hand v to the
// next tap, or Keep() to leave the running value alone. The outcome of an
// invocation is the running value after the last tap.
//
//	hook, _ := tapz.NewWaterfall[int]("scale", "a")
//	_ = hook.Tap(
//	    tapz.Transform("add-one", func(_ context.Context, a int, _ []any) int { return a + 1 }),
//	    tapz.NewTap("noop", func(_ context.Context, a int, _ []any) (tapz.Result[int], error) {
//	        return tapz.Keep[int](), nil
//	    }),
//	    tapz.Transform("times-ten", func(_ context.Context, a int, _ []any) int { return a * 10 }),
//	)
//	result, err := hook.Call(ctx, 5) // 6, 6, 60 -> 60
//
// # Compilation
//
// Hooks do not interpret their tap list on every call. Compile (or
// Waterfall.Routine, which caches) selects one of four combining
// strategies for the exact registration shape:
//
//   - zero taps: return the seed
//   - one tap: invoke it once, no loop
//   - many taps: fold the running value through every tap
//   - intercepted: any interceptor present, regardless of tap count
//
// and binds it to one invocation convention:
//
//   - Sync: Routine.Call returns the outcome
//   - Async: Routine.CallAsync hands it to a trailing callback
//   - PromiseStyle: Routine.Promise settles a Promise on another goroutine
//
// The convention changes delivery only. All three produce the same outcome
// for the same taps and arguments.
//
// # Interceptors
//
// Interceptors observe each invocation (Call), rewrite the tap that runs
// (Tap) or rewrite taps as they are registered (Register). See Interceptor.
//
// # Errors
//
// Definition problems wrap ErrConfiguration, asynchronous tap registration
// wraps ErrUnsupported and compiler defects wrap ErrInternal. A failing or
// panicking tap, observer or transform stops the waterfall and is reported
// as *Error[T]:
//
//	var tapErr *tapz.Error[int]
//	if errors.As(err, &tapErr) {
//	    log.Printf("stopped at %s %q (stage %d)", tapErr.Phase, tapErr.Name, tapErr.Stage)
//	}
package tapz
