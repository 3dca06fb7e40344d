package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/zoobzio/tapz"
	tapztesting "github.com/zoobzio/tapz/testing"
)

// ResolveRequest is the running value of a module resolution hook.
type ResolveRequest struct {
	Path       string
	Extensions []string
	Aliased    bool
}

func newResolveHook(t *testing.T) *tapz.Waterfall[ResolveRequest] {
	t.Helper()
	hook, err := tapz.NewWaterfall[ResolveRequest]("resolve", "request", "context")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	aliases := map[string]string{"@app": "/src/app"}

	err = hook.Tap(
		tapz.Mutate("alias",
			func(_ context.Context, r ResolveRequest, _ []any) ResolveRequest {
				for prefix, target := range aliases {
					if strings.HasPrefix(r.Path, prefix) {
						r.Path = target + strings.TrimPrefix(r.Path, prefix)
						r.Aliased = true
					}
				}
				return r
			},
			func(_ context.Context, r ResolveRequest, _ []any) bool {
				return strings.HasPrefix(r.Path, "@")
			},
		),
		tapz.Apply("relative", func(_ context.Context, r ResolveRequest, rest []any) (ResolveRequest, error) {
			dir, ok := rest[0].(string)
			if !ok {
				return r, errors.New("context must be a directory")
			}
			if strings.HasPrefix(r.Path, "./") {
				r.Path = dir + strings.TrimPrefix(r.Path, ".")
			}
			return r, nil
		}),
		tapz.Transform("extensions", func(_ context.Context, r ResolveRequest, _ []any) ResolveRequest {
			r.Extensions = append(append([]string(nil), r.Extensions...), ".go")
			return r
		}).WithStage(10),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return hook
}

func TestWaterfallFlows_Resolution(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		input    ResolveRequest
		dir      string
		expected string
		aliased  bool
	}{
		{name: "alias", input: ResolveRequest{Path: "@app/main"}, dir: "/work", expected: "/src/app/main", aliased: true},
		{name: "relative", input: ResolveRequest{Path: "./util"}, dir: "/work", expected: "/work/util"},
		{name: "absolute", input: ResolveRequest{Path: "/abs/pkg"}, dir: "/work", expected: "/abs/pkg"},
	}

	hook := newResolveHook(t)
	defer hook.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, c := range tapz.Conventions {
				var result ResolveRequest
				var err error
				switch c {
				case tapz.Sync:
					result, err = hook.Call(ctx, tt.input, tt.dir)
				case tapz.Async:
					err = hook.CallAsync(ctx, tt.input, []any{tt.dir}, func(cbErr error, v ResolveRequest) {
						result, err = v, cbErr
					})
				case tapz.PromiseStyle:
					result, err = hook.Promise(ctx, tt.input, tt.dir).Await(ctx)
				}
				if err != nil {
					t.Fatalf("%s: unexpected error: %v", c, err)
				}
				if result.Path != tt.expected {
					t.Errorf("%s: expected %s, got %s", c, tt.expected, result.Path)
				}
				if result.Aliased != tt.aliased {
					t.Errorf("%s: expected aliased=%t", c, tt.aliased)
				}
				if len(result.Extensions) != 1 {
					t.Errorf("%s: expected one extension, got %v", c, result.Extensions)
				}
			}
		})
	}
}

func TestWaterfallFlows_PluginInterceptors(t *testing.T) {
	ctx := context.Background()
	hook := newResolveHook(t)
	defer hook.Close()

	recorder := tapztesting.NewRecordingInterceptor[ResolveRequest]("recorder")
	if err := hook.Intercept(recorder.Interceptor()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var mu sync.Mutex
	var trace []string
	err := hook.Intercept(tapz.Interceptor[ResolveRequest]{
		Name: "timing",
		Tap: tapz.Wrap(func(tap tapz.Tap[ResolveRequest], next tapz.TapFunc[ResolveRequest]) tapz.TapFunc[ResolveRequest] {
			return func(ctx context.Context, r ResolveRequest, rest []any) (tapz.Result[ResolveRequest], error) {
				res, err := next(ctx, r, rest)
				mu.Lock()
				trace = append(trace, fmt.Sprintf("%s:%t", tap.Name(), res.Changed()))
				mu.Unlock()
				return res, err
			}
		}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := hook.Call(ctx, ResolveRequest{Path: "./x"}, "/w")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Path != "/w/x" {
		t.Errorf("expected /w/x, got %s", result.Path)
	}

	expected := []string{"alias:false", "relative:true", "extensions:true"}
	if strings.Join(trace, ",") != strings.Join(expected, ",") {
		t.Errorf("expected trace %v, got %v", expected, trace)
	}
	if got := recorder.Registered(); len(got) != 3 {
		t.Errorf("expected register hook to see existing taps, got %v", got)
	}
	if got := recorder.Calls(); len(got) != 1 || got[0].Path != "./x" {
		t.Errorf("expected call hook to see the seed, got %v", got)
	}
}

func TestWaterfallFlows_FailureStopsResolution(t *testing.T) {
	ctx := context.Background()
	hook := newResolveHook(t)
	defer hook.Close()

	after := tapztesting.NewMockTap[ResolveRequest](t, "after")
	_ = hook.Tap(after.Tap().WithStage(20))

	_, err := hook.Call(ctx, ResolveRequest{Path: "./x"}, 42)
	var tapErr *tapz.Error[ResolveRequest]
	if !errors.As(err, &tapErr) {
		t.Fatalf("expected *tapz.Error, got %v", err)
	}
	if tapErr.Name != "relative" || tapErr.Stage != 1 {
		t.Errorf("expected failure at relative stage 1, got %s stage %d", tapErr.Name, tapErr.Stage)
	}
	tapztesting.AssertNotCalled(t, after)
}

func TestWaterfallFlows_ConcurrentPlugins(t *testing.T) {
	ctx := context.Background()
	hook, _ := tapz.NewWaterfall[int]("counter", "n")
	defer hook.Close()

	tapztesting.ParallelTest(t, 50, func(id int) {
		name := fmt.Sprintf("plugin-%d", id)
		if err := hook.Tap(tapz.Transform(name, func(_ context.Context, n int, _ []any) int { return n + 1 })); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if _, err := hook.Promise(ctx, 0).Await(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	result, err := hook.Call(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 50 {
		t.Errorf("expected 50, got %d", result)
	}
}
