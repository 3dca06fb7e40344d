package tapz

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for the Waterfall hook.
const (
	// Metrics.
	WaterfallCallsTotal             = metricz.Key("waterfall.calls.total")
	WaterfallSuccessesTotal         = metricz.Key("waterfall.successes.total")
	WaterfallFailuresTotal          = metricz.Key("waterfall.failures.total")
	WaterfallCompilationsTotal      = metricz.Key("waterfall.compilations.total")
	WaterfallTapsInvokedTotal       = metricz.Key("waterfall.taps.invoked.total")
	WaterfallTapsDeclinedTotal      = metricz.Key("waterfall.taps.declined.total")
	WaterfallTapsRegistered         = metricz.Key("waterfall.taps.registered")
	WaterfallInterceptorsRegistered = metricz.Key("waterfall.interceptors.registered")
	WaterfallDurationMs             = metricz.Key("waterfall.duration.ms")

	// Spans.
	WaterfallCallSpan = tracez.Key("waterfall.call")
	WaterfallTapSpan  = tracez.Key("waterfall.tap")

	// Tags.
	WaterfallTagHook       = tracez.Tag("waterfall.hook")
	WaterfallTagStrategy   = tracez.Tag("waterfall.strategy")
	WaterfallTagConvention = tracez.Tag("waterfall.convention")
	WaterfallTagTapCount   = tracez.Tag("waterfall.tap_count")
	WaterfallTagStage      = tracez.Tag("waterfall.stage")
	WaterfallTagTapName    = tracez.Tag("waterfall.tap_name")
	WaterfallTagChanged    = tracez.Tag("waterfall.changed")
	WaterfallTagSuccess    = tracez.Tag("waterfall.success")
	WaterfallTagError      = tracez.Tag("waterfall.error")

	// Hook event keys.
	WaterfallEventTapped       = hookz.Key("waterfall.tapped")
	WaterfallEventCompiled     = hookz.Key("waterfall.compiled")
	WaterfallEventCallComplete = hookz.Key("waterfall.call_complete")
)

// WaterfallEvent is emitted via hookz when a tap is registered, when a
// routine is compiled and when an invocation completes.
type WaterfallEvent struct {
	Timestamp    time.Time     // When the event occurred
	Error        error         // Error if the invocation failed
	Name         Name          // Hook name
	TapName      Name          // Registered tap (tapped only)
	Strategy     Strategy      // Selected strategy (compiled, call_complete)
	Convention   Convention    // Routine convention (compiled, call_complete)
	TapCount     int           // Taps in the compiled shape
	Interceptors int           // Interceptors in the compiled shape
	Duration     time.Duration // Invocation time (call_complete only)
	Success      bool          // Whether the invocation succeeded
}

// Waterfall is a hook whose taps chain: each tap sees the running value
// left by the one before it and may replace it. The seed is the first
// invocation argument and the outcome is the final running value.
//
// Waterfall owns the argument list, taps and interceptors. It compiles a
// Routine per convention on first use and reuses it until the
// registrations change, so steady-state calls skip strategy selection.
//
// Only synchronous taps are accepted. TapAsync and TapPromise exist to
// report ErrUnsupported for callers that try them.
//
// Waterfall is safe for concurrent use. A call runs against the routine
// that was current when it started; registrations made meanwhile apply to
// later calls.
//
// # Observability
//
// Metrics:
//   - waterfall.calls.total: Counter of invocations
//   - waterfall.successes.total: Counter of successful invocations
//   - waterfall.failures.total: Counter of failed invocations
//   - waterfall.compilations.total: Counter of routines compiled
//   - waterfall.taps.invoked.total: Counter of tap invocations
//   - waterfall.taps.declined.total: Counter of taps that kept the running value
//   - waterfall.taps.registered: Gauge of registered taps
//   - waterfall.interceptors.registered: Gauge of registered interceptors
//   - waterfall.duration.ms: Gauge of the last invocation duration
//
// Traces:
//   - waterfall.call: Parent span for an invocation
//   - waterfall.tap: Child span for each tap
//
// Events (via hooks):
//   - waterfall.tapped: Fired for each registered tap
//   - waterfall.compiled: Fired when a routine is compiled
//   - waterfall.call_complete: Fired when an invocation finishes
//
// Example:
//
//	hook, err := tapz.NewWaterfall[int]("scale", "a")
//	if err != nil {
//	    return err
//	}
//	_ = hook.Tap(
//	    tapz.Transform("add-one", func(_ context.Context, a int, _ []any) int { return a + 1 }),
//	    tapz.Effect("log", func(_ context.Context, a int, _ []any) error { return nil }),
//	    tapz.Transform("times-ten", func(_ context.Context, a int, _ []any) int { return a * 10 }),
//	)
//	result, err := hook.Call(ctx, 5) // 60
type Waterfall[T any] struct {
	clock        clockz.Clock
	routines     map[Convention]*Routine[T]
	metrics      *metricz.Registry
	tracer       *tracez.Tracer
	hooks        *hookz.Hooks[WaterfallEvent]
	name         Name
	args         []Name
	taps         []Tap[T]
	interceptors []Interceptor[T]
	mu           sync.RWMutex
}

// NewWaterfall creates a waterfall hook with the given argument names.
// The first argument seeds the running value; at least one is required.
func NewWaterfall[T any](name Name, args ...Name) (*Waterfall[T], error) {
	if err := validateArgs(args); err != nil {
		return nil, fmt.Errorf("hook %q: %w", name, err)
	}

	metrics := metricz.New()
	metrics.Counter(WaterfallCallsTotal)
	metrics.Counter(WaterfallSuccessesTotal)
	metrics.Counter(WaterfallFailuresTotal)
	metrics.Counter(WaterfallCompilationsTotal)
	metrics.Counter(WaterfallTapsInvokedTotal)
	metrics.Counter(WaterfallTapsDeclinedTotal)
	metrics.Gauge(WaterfallTapsRegistered)
	metrics.Gauge(WaterfallInterceptorsRegistered)
	metrics.Gauge(WaterfallDurationMs)

	return &Waterfall[T]{
		name:     name,
		args:     slices.Clone(args),
		routines: make(map[Convention]*Routine[T]),
		metrics:  metrics,
		tracer:   tracez.New(),
		hooks:    hookz.New[WaterfallEvent](),
	}, nil
}

// Tap registers synchronous taps. Each tap is passed through the Register
// transform of every interceptor, then inserted after all taps whose stage
// is not greater than its own.
func (w *Waterfall[T]) Tap(taps ...Tap[T]) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	prepared, err := w.prepare(taps)
	if err != nil {
		return err
	}
	for _, tap := range prepared {
		i := len(w.taps)
		for i > 0 && w.taps[i-1].stage > tap.stage {
			i--
		}
		w.taps = slices.Insert(w.taps, i, tap)
	}
	w.changed()
	w.emitTapped(prepared)
	return nil
}

// TapAsync always fails: a waterfall needs each tap's value before the
// next tap runs, so callback-style taps cannot be registered.
func (w *Waterfall[T]) TapAsync(_ Name, _ func(context.Context, T, []any, Callback[T])) error {
	return unsupportedTap(w.name, "TapAsync")
}

// TapPromise always fails for the same reason as TapAsync.
func (w *Waterfall[T]) TapPromise(_ Name, _ func(context.Context, T, []any) *Promise[T]) error {
	return unsupportedTap(w.name, "TapPromise")
}

// Before inserts taps before the first tap with the given name,
// regardless of stage.
func (w *Waterfall[T]) Before(name Name, taps ...Tap[T]) error {
	return w.insertAt(name, 0, taps)
}

// After inserts taps after the first tap with the given name,
// regardless of stage.
func (w *Waterfall[T]) After(name Name, taps ...Tap[T]) error {
	return w.insertAt(name, 1, taps)
}

func (w *Waterfall[T]) insertAt(name Name, offset int, taps []Tap[T]) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	prepared, err := w.prepare(taps)
	if err != nil {
		return err
	}
	w.taps = slices.Insert(w.taps, i+offset, prepared...)
	w.changed()
	w.emitTapped(prepared)
	return nil
}

// Remove removes the first tap with the given name.
func (w *Waterfall[T]) Remove(name Name) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	w.taps = slices.Delete(w.taps, i, i+1)
	w.changed()
	return nil
}

// Intercept registers an interceptor. Its Register transform is applied to
// every tap already registered before it is added.
func (w *Waterfall[T]) Intercept(ic Interceptor[T]) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ic.Register != nil {
		rewritten := make([]Tap[T], len(w.taps))
		for i, tap := range w.taps {
			next, err := register(ic, tap)
			if err != nil {
				return err
			}
			rewritten[i] = next
		}
		w.taps = rewritten
	}
	w.interceptors = append(w.interceptors, ic)
	w.changed()
	return nil
}

// Clear removes all taps and interceptors.
func (w *Waterfall[T]) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.taps = nil
	w.interceptors = nil
	w.changed()
}

// prepare validates taps and runs them through every Register transform.
// Callers hold the write lock.
func (w *Waterfall[T]) prepare(taps []Tap[T]) ([]Tap[T], error) {
	prepared := make([]Tap[T], 0, len(taps))
	for _, tap := range taps {
		if err := validateTap(tap); err != nil {
			return nil, fmt.Errorf("hook %q: %w", w.name, err)
		}
		for _, ic := range w.interceptors {
			if ic.Register == nil {
				continue
			}
			var err error
			if tap, err = register(ic, tap); err != nil {
				return nil, err
			}
		}
		prepared = append(prepared, tap)
	}
	return prepared, nil
}

func register[T any](ic Interceptor[T], tap Tap[T]) (Tap[T], error) {
	var next Tap[T]
	_, err := guard(func() error {
		var err error
		next, err = ic.Register(tap)
		return err
	})
	if err != nil {
		return tap, fmt.Errorf("interceptor %q rejected tap %q: %w", ic.Name, tap.name, err)
	}
	if err := validateTap(next); err != nil {
		return tap, fmt.Errorf("interceptor %q: %w", ic.Name, err)
	}
	return next, nil
}

func (w *Waterfall[T]) indexOf(name Name) int {
	for i, tap := range w.taps {
		if tap.name == name {
			return i
		}
	}
	return -1
}

// changed drops every compiled routine. Callers hold the write lock.
func (w *Waterfall[T]) changed() {
	clear(w.routines)
	w.metrics.Gauge(WaterfallTapsRegistered).Set(float64(len(w.taps)))
	w.metrics.Gauge(WaterfallInterceptorsRegistered).Set(float64(len(w.interceptors)))
}

func (w *Waterfall[T]) emitTapped(taps []Tap[T]) {
	for _, tap := range taps {
		_ = w.hooks.Emit(context.Background(), WaterfallEventTapped, WaterfallEvent{ //nolint:errcheck
			Name:      w.name,
			TapName:   tap.name,
			TapCount:  len(w.taps),
			Timestamp: w.getClock().Now(),
		})
	}
}

// Routine returns the routine compiled for the current registrations and
// the given convention, compiling it on first use.
func (w *Waterfall[T]) Routine(c Convention) (*Routine[T], error) {
	w.mu.RLock()
	routine, ok := w.routines[c]
	w.mu.RUnlock()
	if ok {
		return routine, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if routine, ok := w.routines[c]; ok {
		return routine, nil
	}

	routine, err := compile(w.descriptor(c), w.taps, w.interceptors, w.name, &instruments{
		metrics: w.metrics,
		tracer:  w.tracer,
		hooks:   w.hooks,
	})
	if err != nil {
		return nil, fmt.Errorf("hook %q: %w", w.name, err)
	}
	routine.clock = w.clock
	w.routines[c] = routine
	w.metrics.Counter(WaterfallCompilationsTotal).Inc()

	_ = w.hooks.Emit(context.Background(), WaterfallEventCompiled, WaterfallEvent{ //nolint:errcheck
		Name:         w.name,
		Strategy:     routine.strategy,
		Convention:   c,
		TapCount:     len(routine.taps),
		Interceptors: len(routine.interceptors),
		Timestamp:    w.getClock().Now(),
	})
	return routine, nil
}

// descriptor describes the current registrations. Callers hold the lock.
func (w *Waterfall[T]) descriptor(c Convention) Descriptor {
	return Descriptor{
		Args:        w.args,
		TapCount:    len(w.taps),
		Intercepted: len(w.interceptors) > 0,
		Convention:  c,
	}
}

// Call runs the waterfall synchronously and returns the final running value.
func (w *Waterfall[T]) Call(ctx context.Context, seed T, rest ...any) (T, error) {
	routine, err := w.Routine(Sync)
	if err != nil {
		var zero T
		return zero, err
	}
	return routine.Call(ctx, seed, rest...)
}

// CallAsync runs the waterfall and hands the result to done.
// See Routine.CallAsync for how failures are reported.
func (w *Waterfall[T]) CallAsync(ctx context.Context, seed T, rest []any, done Callback[T]) error {
	routine, err := w.Routine(Async)
	if err != nil {
		return err
	}
	return routine.CallAsync(ctx, seed, rest, done)
}

// Promise runs the waterfall on a new goroutine and returns its Promise.
func (w *Waterfall[T]) Promise(ctx context.Context, seed T, rest ...any) *Promise[T] {
	routine, err := w.Routine(PromiseStyle)
	if err != nil {
		return rejected[T](err)
	}
	return routine.Promise(ctx, seed, rest...)
}

// Name returns the hook name.
func (w *Waterfall[T]) Name() Name {
	return w.name
}

// Args returns a copy of the argument names.
func (w *Waterfall[T]) Args() []Name {
	return slices.Clone(w.args)
}

// Len returns the number of registered taps.
func (w *Waterfall[T]) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.taps)
}

// Names returns the names of all taps in call order.
func (w *Waterfall[T]) Names() []Name {
	w.mu.RLock()
	defer w.mu.RUnlock()

	names := make([]Name, len(w.taps))
	for i, tap := range w.taps {
		names[i] = tap.name
	}
	return names
}

// IsUsed reports whether any tap or interceptor is registered.
func (w *Waterfall[T]) IsUsed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.taps) > 0 || len(w.interceptors) > 0
}

// WithClock sets a custom clock for testing. Routines compiled afterwards
// use it for timestamps and durations.
func (w *Waterfall[T]) WithClock(clock clockz.Clock) *Waterfall[T] {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clock = clock
	clear(w.routines)
	return w
}

func (w *Waterfall[T]) getClock() clockz.Clock {
	if w.clock == nil {
		return clockz.RealClock
	}
	return w.clock
}

// Metrics returns the metrics registry for this hook.
func (w *Waterfall[T]) Metrics() *metricz.Registry {
	return w.metrics
}

// Tracer returns the tracer for this hook.
func (w *Waterfall[T]) Tracer() *tracez.Tracer {
	return w.tracer
}

// Close gracefully shuts down observability components.
func (w *Waterfall[T]) Close() error {
	if w.tracer != nil {
		w.tracer.Close()
	}
	w.hooks.Close()
	return nil
}

// OnTapped registers a handler for each tap registration.
// The handler is called asynchronously.
func (w *Waterfall[T]) OnTapped(handler func(context.Context, WaterfallEvent) error) error {
	_, err := w.hooks.Hook(WaterfallEventTapped, handler)
	return err
}

// OnCompiled registers a handler for each routine compilation.
// The handler is called asynchronously.
func (w *Waterfall[T]) OnCompiled(handler func(context.Context, WaterfallEvent) error) error {
	_, err := w.hooks.Hook(WaterfallEventCompiled, handler)
	return err
}

// OnCallComplete registers a handler for each finished invocation,
// successful or not. The handler is called asynchronously.
func (w *Waterfall[T]) OnCallComplete(handler func(context.Context, WaterfallEvent) error) error {
	_, err := w.hooks.Hook(WaterfallEventCallComplete, handler)
	return err
}
