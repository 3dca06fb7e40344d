package tapz

import (
	"context"
	"strings"
	"testing"
)

func TestTransform(t *testing.T) {
	t.Run("Always Replaces", func(t *testing.T) {
		upper := Transform("upper", func(_ context.Context, s string, _ []any) string {
			return strings.ToUpper(s)
		})

		res, err := upper.Run(context.Background(), "hello", nil)
		if err != nil {
			t.Fatalf("transform should not return error: %v", err)
		}
		v, ok := res.Get()
		if !ok {
			t.Fatal("expected transform to replace the running value")
		}
		if v != "HELLO" {
			t.Errorf("expected HELLO, got %s", v)
		}
	})

	t.Run("Replacing With Zero Value Still Replaces", func(t *testing.T) {
		zero := Transform("zero", func(context.Context, int, []any) int { return 0 })
		res, _ := zero.Run(context.Background(), 9, nil)
		if v, ok := res.Get(); !ok || v != 0 {
			t.Errorf("expected replacement with 0, got %d (changed=%t)", v, ok)
		}
	})

	t.Run("Sees Rest Arguments", func(t *testing.T) {
		join := Transform("join", func(_ context.Context, s string, rest []any) string {
			return s + rest[0].(string)
		})
		res, _ := join.Run(context.Background(), "a", []any{"b"})
		if v, _ := res.Get(); v != "ab" {
			t.Errorf("expected ab, got %s", v)
		}
	})

	t.Run("Name", func(t *testing.T) {
		tap := Transform("named", func(_ context.Context, s string, _ []any) string { return s })
		if tap.Name() != "named" {
			t.Errorf("expected named, got %s", tap.Name())
		}
		if tap.Stage() != 0 {
			t.Errorf("expected default stage 0, got %d", tap.Stage())
		}
	})
}
