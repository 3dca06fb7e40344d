package tapz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestConventions(t *testing.T) {
	ctx := context.Background()
	compileScale := func(t *testing.T, c Convention) *Routine[int] {
		return mustCompile(t, Descriptor{Args: []Name{"a"}, TapCount: 3, Convention: c}, scaleTaps(), nil)
	}

	t.Run("Sync Returns Outcome", func(t *testing.T) {
		result, err := compileScale(t, Sync).Call(ctx, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != 60 {
			t.Errorf("expected 60, got %d", result)
		}
	})

	t.Run("Async Invokes Callback Once Before Returning", func(t *testing.T) {
		calls := 0
		var gotErr error
		var gotValue int
		err := compileScale(t, Async).CallAsync(ctx, 5, nil, func(err error, value int) {
			calls++
			gotErr = err
			gotValue = value
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Fatalf("expected callback once, got %d", calls)
		}
		if gotErr != nil {
			t.Errorf("expected nil callback error, got %v", gotErr)
		}
		if gotValue != 60 {
			t.Errorf("expected 60, got %d", gotValue)
		}
	})

	t.Run("Promise Resolves", func(t *testing.T) {
		result, err := compileScale(t, PromiseStyle).Promise(ctx, 5).Await(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != 60 {
			t.Errorf("expected 60, got %d", result)
		}
	})

	t.Run("Zero Taps Under Every Convention", func(t *testing.T) {
		for _, c := range Conventions {
			routine := mustCompile[string](t, Descriptor{Args: []Name{"x"}, Convention: c}, nil, nil)
			var result string
			var err error
			switch c {
			case Sync:
				result, err = routine.Call(ctx, "seed")
			case Async:
				err = routine.CallAsync(ctx, "seed", nil, func(_ error, v string) { result = v })
			case PromiseStyle:
				result, err = routine.Promise(ctx, "seed").Await(ctx)
			}
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", c, err)
			}
			if result != "seed" {
				t.Errorf("%s: expected seed, got %q", c, result)
			}
		}
	})

	t.Run("Convention Mismatch", func(t *testing.T) {
		if _, err := compileScale(t, Async).Call(ctx, 5); !errors.Is(err, ErrConvention) {
			t.Errorf("Call: expected ErrConvention, got %v", err)
		}
		if err := compileScale(t, Sync).CallAsync(ctx, 5, nil, func(error, int) {}); !errors.Is(err, ErrConvention) {
			t.Errorf("CallAsync: expected ErrConvention, got %v", err)
		}
		if _, err := compileScale(t, Sync).Promise(ctx, 5).Await(ctx); !errors.Is(err, ErrConvention) {
			t.Errorf("Promise: expected ErrConvention, got %v", err)
		}
	})

	t.Run("Arity", func(t *testing.T) {
		routine := mustCompile(t, Descriptor{Args: []Name{"a", "b"}, TapCount: 3}, scaleTaps(), nil)
		if _, err := routine.Call(ctx, 5); !errors.Is(err, ErrArity) {
			t.Errorf("expected ErrArity for missing argument, got %v", err)
		}
		if _, err := routine.Call(ctx, 5, "b", "c"); !errors.Is(err, ErrArity) {
			t.Errorf("expected ErrArity for extra argument, got %v", err)
		}
		if _, err := routine.Call(ctx, 5, "b"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Async Requires Callback", func(t *testing.T) {
		err := compileScale(t, Async).CallAsync(ctx, 5, nil, nil)
		if !errors.Is(err, ErrArity) {
			t.Errorf("expected ErrArity, got %v", err)
		}
	})
}

func TestConventionFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	failing := func() []Tap[int] {
		taps := scaleTaps()
		taps[1] = Apply("fails", func(_ context.Context, _ int, _ []any) (int, error) {
			return 0, boom
		})
		return taps
	}

	t.Run("Sync Returns Error", func(t *testing.T) {
		routine := mustCompile(t, Descriptor{Args: []Name{"a"}, TapCount: 3}, failing(), nil)
		_, err := routine.Call(ctx, 5)
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})

	t.Run("Async Returns Error Without Callback", func(t *testing.T) {
		routine := mustCompile(t, Descriptor{Args: []Name{"a"}, TapCount: 3, Convention: Async}, failing(), nil)
		called := false
		err := routine.CallAsync(ctx, 5, nil, func(error, int) { called = true })
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if called {
			t.Error("expected callback not to be called")
		}
	})

	t.Run("Promise Rejects", func(t *testing.T) {
		routine := mustCompile(t, Descriptor{Args: []Name{"a"}, TapCount: 3, Convention: PromiseStyle}, failing(), nil)
		result, err := routine.Promise(ctx, 5).Await(ctx)
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if result != 0 {
			t.Errorf("expected zero value, got %d", result)
		}
	})

	t.Run("Promise Rejects Panic", func(t *testing.T) {
		taps := []Tap[int]{NewTap("panics", func(_ context.Context, _ int, _ []any) (Result[int], error) {
			panic("nope")
		})}
		routine := mustCompile(t, Descriptor{Args: []Name{"a"}, TapCount: 1, Convention: PromiseStyle}, taps, nil)

		p := routine.Promise(ctx, 5)
		_, err := p.Await(ctx)
		var tapErr *Error[int]
		if !errors.As(err, &tapErr) || !tapErr.Panicked {
			t.Errorf("expected panicked *Error[int], got %v", err)
		}
	})

	t.Run("Promise Defers Execution", func(t *testing.T) {
		release := make(chan struct{})
		ran := make(chan struct{})
		taps := []Tap[int]{NewTap("blocks", func(_ context.Context, a int, _ []any) (Result[int], error) {
			close(ran)
			<-release
			return Replace(a), nil
		})}
		routine := mustCompile(t, Descriptor{Args: []Name{"a"}, TapCount: 1, Convention: PromiseStyle}, taps, nil)

		p := routine.Promise(ctx, 3)
		select {
		case <-p.Done():
			t.Fatal("promise settled before its tap finished")
		default:
		}
		<-ran
		close(release)
		if v, err := p.Await(ctx); err != nil || v != 3 {
			t.Errorf("expected 3, got %d (%v)", v, err)
		}
	})
}

func TestPromise(t *testing.T) {
	t.Run("Await Honors Context", func(t *testing.T) {
		p := newPromise[int]()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := p.Await(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("Then Fulfilled", func(t *testing.T) {
		p := newPromise[int]()
		var wg sync.WaitGroup
		wg.Add(1)
		var got int
		p.Then(func(v int) {
			got = v
			wg.Done()
		}, func(error) {
			t.Error("unexpected rejection")
			wg.Done()
		})
		p.settle(7, nil)
		wg.Wait()
		if got != 7 {
			t.Errorf("expected 7, got %d", got)
		}
	})

	t.Run("Then Rejected", func(t *testing.T) {
		boom := errors.New("boom")
		p := rejected[int](boom)
		var wg sync.WaitGroup
		wg.Add(1)
		var got error
		p.Then(nil, func(err error) {
			got = err
			wg.Done()
		})
		wg.Wait()
		if !errors.Is(got, boom) {
			t.Errorf("expected boom, got %v", got)
		}
	})
}

func TestConcurrentInvocations(t *testing.T) {
	taps := []Tap[int]{
		Transform("add-one", func(_ context.Context, a int, _ []any) int { return a + 1 }),
		Transform("double", func(_ context.Context, a int, _ []any) int { return a * 2 }),
	}
	routine := mustCompile(t, Descriptor{Args: []Name{"a"}, TapCount: 2}, taps, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			result, err := routine.Call(context.Background(), n)
			if err != nil {
				errs <- err
				return
			}
			if result != (n+1)*2 {
				errs <- errors.New("accumulator shared between invocations")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestParseConvention(t *testing.T) {
	for _, c := range Conventions {
		got, err := ParseConvention(c.String())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != c {
			t.Errorf("expected %s, got %s", c, got)
		}
	}
	if _, err := ParseConvention("parallel"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}
