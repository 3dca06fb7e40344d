package tapz

import (
	"context"
	"errors"
	"strconv"
	"testing"
)

func TestApply(t *testing.T) {
	parse := Apply("parse", func(_ context.Context, s string, _ []any) (string, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n * 2), nil
	})

	t.Run("Replaces On Success", func(t *testing.T) {
		res, err := parse.Run(context.Background(), "21", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v, ok := res.Get(); !ok || v != "42" {
			t.Errorf("expected 42, got %q (changed=%t)", v, ok)
		}
	})

	t.Run("Keeps And Reports Error", func(t *testing.T) {
		res, err := parse.Run(context.Background(), "nope", nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if res.Changed() {
			t.Error("expected failing apply to keep the running value")
		}
	})

	t.Run("Stops Waterfall", func(t *testing.T) {
		ran := false
		taps := []Tap[string]{
			parse,
			Effect("after", func(context.Context, string, []any) error {
				ran = true
				return nil
			}),
		}
		routine := mustCompile(t, Descriptor{Args: []Name{"s"}, TapCount: 2}, taps, nil)

		_, err := routine.Call(context.Background(), "nope")
		var tapErr *Error[string]
		if !errors.As(err, &tapErr) {
			t.Fatalf("expected *Error[string], got %v", err)
		}
		if tapErr.Name != "parse" || tapErr.InputData != "nope" {
			t.Errorf("unexpected error location: %s with %q", tapErr.Name, tapErr.InputData)
		}
		if ran {
			t.Error("expected later tap not to run")
		}
	})
}
