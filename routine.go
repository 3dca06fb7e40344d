package tapz

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Routine is a dispatch routine compiled for one hook shape and one
// convention. It holds a snapshot of the taps and interceptors it was
// compiled with and never changes afterwards, so a single Routine can be
// invoked concurrently; each invocation keeps its running value to itself.
//
// Obtain a Routine from Compile or Waterfall.Routine, then invoke it with
// the method matching its convention: Call, CallAsync or Promise.
type Routine[T any] struct {
	clock        clockz.Clock
	inst         *instruments
	combine      combiner[T]
	hook         Name
	strategy     Strategy
	args         []Name
	taps         []Tap[T]
	interceptors []Interceptor[T]
	convention   Convention
}

// instruments carries the observability components of the owning
// Waterfall. Routines compiled directly through Compile have none.
type instruments struct {
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[WaterfallEvent]
}

// Strategy returns the combining strategy selected at compile time.
func (r *Routine[T]) Strategy() Strategy {
	return r.strategy
}

// Convention returns the convention the routine was compiled for.
func (r *Routine[T]) Convention() Convention {
	return r.convention
}

// Args returns a copy of the argument names.
func (r *Routine[T]) Args() []Name {
	return slices.Clone(r.args)
}

// Descriptor returns the shape the routine was compiled for.
func (r *Routine[T]) Descriptor() Descriptor {
	return Descriptor{
		Args:        r.Args(),
		TapCount:    len(r.taps),
		Intercepted: len(r.interceptors) > 0,
		Convention:  r.convention,
	}
}

// WithClock sets a custom clock for error timestamps and durations.
// Configure it before the routine is shared.
func (r *Routine[T]) WithClock(clock clockz.Clock) *Routine[T] {
	r.clock = clock
	return r
}

func (r *Routine[T]) getClock() clockz.Clock {
	if r.clock == nil {
		return clockz.RealClock
	}
	return r.clock
}

// run validates arity and executes the combining strategy, recording
// metrics, a call span and a completion event when instrumented.
func (r *Routine[T]) run(ctx context.Context, seed T, rest []any) (T, error) {
	if err := validateArity(r.args, rest); err != nil {
		var zero T
		return zero, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if r.inst == nil {
		return r.combine(r, ctx, seed, rest)
	}

	clock := r.getClock()
	start := clock.Now()
	r.inst.metrics.Counter(WaterfallCallsTotal).Inc()

	ctx, span := r.inst.tracer.StartSpan(ctx, WaterfallCallSpan)
	span.SetTag(WaterfallTagHook, r.hook)
	span.SetTag(WaterfallTagStrategy, string(r.strategy))
	span.SetTag(WaterfallTagConvention, r.convention.String())
	span.SetTag(WaterfallTagTapCount, fmt.Sprintf("%d", len(r.taps)))

	result, err := r.combine(r, ctx, seed, rest)

	elapsed := clock.Since(start)
	r.inst.metrics.Gauge(WaterfallDurationMs).Set(float64(elapsed.Milliseconds()))
	if err == nil {
		span.SetTag(WaterfallTagSuccess, "true")
		r.inst.metrics.Counter(WaterfallSuccessesTotal).Inc()
	} else {
		span.SetTag(WaterfallTagSuccess, "false")
		span.SetTag(WaterfallTagError, err.Error())
		r.inst.metrics.Counter(WaterfallFailuresTotal).Inc()
	}
	span.Finish()

	_ = r.inst.hooks.Emit(ctx, WaterfallEventCallComplete, WaterfallEvent{ //nolint:errcheck
		Name:         r.hook,
		Strategy:     r.strategy,
		Convention:   r.convention,
		TapCount:     len(r.taps),
		Interceptors: len(r.interceptors),
		Success:      err == nil,
		Error:        err,
		Duration:     elapsed,
		Timestamp:    clock.Now(),
	})

	return result, err
}

// invokeTap runs one tap handler, inside a tap span when instrumented.
func (r *Routine[T]) invokeTap(ctx context.Context, stage int, tap Tap[T], current T, rest []any) (Result[T], error) {
	if r.inst == nil {
		return r.runTap(ctx, stage, tap, current, rest)
	}

	ctx, span := r.inst.tracer.StartSpan(ctx, WaterfallTapSpan)
	defer span.Finish()
	span.SetTag(WaterfallTagStage, fmt.Sprintf("%d", stage))
	span.SetTag(WaterfallTagTapName, tap.name)
	r.inst.metrics.Counter(WaterfallTapsInvokedTotal).Inc()

	res, err := r.runTap(ctx, stage, tap, current, rest)
	if err != nil {
		span.SetTag(WaterfallTagError, err.Error())
		return res, err
	}
	span.SetTag(WaterfallTagChanged, fmt.Sprintf("%t", res.changed))
	if !res.changed {
		r.inst.metrics.Counter(WaterfallTapsDeclinedTotal).Inc()
	}
	return res, nil
}

// runTap calls the handler with panic recovery.
func (r *Routine[T]) runTap(ctx context.Context, stage int, tap Tap[T], current T, rest []any) (Result[T], error) {
	clock := r.getClock()
	start := clock.Now()
	var res Result[T]
	panicked, err := guard(func() error {
		var err error
		res, err = tap.fn(ctx, current, rest)
		return err
	})
	if err != nil {
		return Keep[T](), r.fail(PhaseTap, tap.name, stage, current, err, panicked, clock.Since(start))
	}
	return res, nil
}

// invokeCall runs one interceptor call observer.
func (r *Routine[T]) invokeCall(ctx context.Context, ic Interceptor[T], seed T, rest []any) error {
	clock := r.getClock()
	start := clock.Now()
	panicked, err := guard(func() error {
		return ic.Call(ctx, seed, rest)
	})
	if err != nil {
		return r.fail(PhaseCall, ic.Name, -1, seed, err, panicked, clock.Since(start))
	}
	return nil
}

// invokeTransform applies one interceptor tap transform.
func (r *Routine[T]) invokeTransform(ctx context.Context, stage int, ic Interceptor[T], tap Tap[T], current T) (Tap[T], error) {
	clock := r.getClock()
	start := clock.Now()
	var effective Tap[T]
	panicked, err := guard(func() error {
		var err error
		effective, err = ic.Tap(ctx, tap)
		return err
	})
	if err != nil {
		return tap, r.fail(PhaseTransform, ic.Name, stage, current, err, panicked, clock.Since(start))
	}
	return effective, nil
}

func (r *Routine[T]) fail(phase Phase, name Name, stage int, current T, err error, panicked bool, elapsed time.Duration) *Error[T] {
	return &Error[T]{
		Timestamp: r.getClock().Now(),
		InputData: current,
		Err:       err,
		Hook:      r.hook,
		Name:      name,
		Phase:     phase,
		Duration:  elapsed,
		Stage:     stage,
		Panicked:  panicked,
	}
}
