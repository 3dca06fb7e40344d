package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/zoobzio/tapz"
)

var (
	demoConvention string

	demoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Run the reference waterfall",
		Long: `Run a waterfall hook with three taps (add one, keep, times ten)
seeded with 5, and print every step. The outcome is 60 under every
convention; only the way it is delivered changes.`,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conventions, err := demoConventions(demoConvention)
			if err != nil {
				return err
			}
			return runDemo(cmd.Context(), cmd.OutOrStdout(), conventions)
		},
	}
)

func init() {
	demoCmd.Flags().StringVarP(&demoConvention, "convention", "c", "all", "Convention to run: sync, async, promise or all")
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[37m"
)

func demoConventions(name string) ([]tapz.Convention, error) {
	if name == "all" || name == "" {
		return tapz.Conventions, nil
	}
	c, err := tapz.ParseConvention(name)
	if err != nil {
		return nil, err
	}
	return []tapz.Convention{c}, nil
}

// newDemoHook builds the reference hook with a tracing interceptor that
// prints each tap's effect on the running value.
func newDemoHook(out io.Writer) (*tapz.Waterfall[int], error) {
	hook, err := tapz.NewWaterfall[int]("scale", "a")
	if err != nil {
		return nil, err
	}
	err = hook.Tap(
		tapz.Transform("add-one", func(_ context.Context, a int, _ []any) int { return a + 1 }),
		tapz.NewTap("keep", func(context.Context, int, []any) (tapz.Result[int], error) {
			return tapz.Keep[int](), nil
		}),
		tapz.Transform("times-ten", func(_ context.Context, a int, _ []any) int { return a * 10 }),
	)
	if err != nil {
		return nil, err
	}
	err = hook.Intercept(tapz.Interceptor[int]{
		Name: "trace",
		Tap: tapz.Wrap(func(tap tapz.Tap[int], next tapz.TapFunc[int]) tapz.TapFunc[int] {
			return func(ctx context.Context, a int, rest []any) (tapz.Result[int], error) {
				res, err := next(ctx, a, rest)
				if v, ok := res.Get(); ok {
					fmt.Fprintf(out, "  %s%-10s%s %d -> %d\n", colorCyan, tap.Name(), colorReset, a, v)
				} else if err == nil {
					fmt.Fprintf(out, "  %s%-10s%s %d (kept)\n", colorCyan, tap.Name(), colorReset, a)
				}
				return res, err
			}
		}),
	})
	return hook, err
}

func runDemo(ctx context.Context, out io.Writer, conventions []tapz.Convention) error {
	if ctx == nil {
		ctx = context.Background()
	}
	hook, err := newDemoHook(out)
	if err != nil {
		return err
	}
	defer hook.Close()

	for _, c := range conventions {
		routine, err := hook.Routine(c)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s%s%s %s(strategy %s)%s\n", colorYellow, c, colorReset, colorGray, routine.Strategy(), colorReset)

		var result int
		switch c {
		case tapz.Sync:
			result, err = hook.Call(ctx, 5)
		case tapz.Async:
			err = hook.CallAsync(ctx, 5, nil, func(cbErr error, v int) {
				result, err = v, cbErr
			})
		case tapz.PromiseStyle:
			result, err = hook.Promise(ctx, 5).Await(ctx)
		}
		if err != nil {
			fmt.Fprintf(out, "  %sfailed:%s %v\n", colorRed, colorReset, err)
			return err
		}
		fmt.Fprintf(out, "  %sresult%s     %d\n\n", colorGreen, colorReset, result)
	}
	return nil
}
