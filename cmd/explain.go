package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zoobzio/tapz"
)

var (
	explainFile string

	explainCmd = &cobra.Command{
		Use:   "explain",
		Short: "Explain how hook shapes compile",
		Long: `Load hook shapes from a YAML file and print the combining strategy
and invocation wrapper each one compiles to, or why it does not compile.

Example file:

  hooks:
    - name: resolve
      args: [request, context]
      taps: 3
      convention: async
    - name: emit
      args: [assets]
      taps: 0
      interceptors: 1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			shapes, err := LoadShapes(explainFile)
			if err != nil {
				return err
			}
			return explain(cmd.OutOrStdout(), shapes)
		},
	}
)

func init() {
	explainCmd.Flags().StringVarP(&explainFile, "file", "f", "shapes.yaml", "Path to the shapes file")
}

// Explanation is the compile outcome for one shape.
type Explanation struct {
	Err      error
	Name     string
	Strategy tapz.Strategy
	Wrapper  string
	Shape    tapz.Descriptor
}

var wrappers = map[tapz.Convention]string{
	tapz.Sync:         "Call",
	tapz.Async:        "CallAsync",
	tapz.PromiseStyle: "Promise",
}

// explainShape compiles a placeholder routine for the shape so every
// validation the compiler performs is applied.
func explainShape(s Shape) Explanation {
	e := Explanation{Name: s.Name}
	d, err := s.Descriptor()
	if err != nil {
		e.Err = err
		return e
	}
	if s.Taps < 0 || s.Interceptors < 0 {
		e.Shape = d
		e.Err = fmt.Errorf("%w: tap and interceptor counts must not be negative", tapz.ErrConfiguration)
		return e
	}

	taps := make([]tapz.Tap[any], s.Taps)
	for i := range taps {
		taps[i] = tapz.Effect(fmt.Sprintf("tap-%d", i), func(context.Context, any, []any) error { return nil })
	}
	interceptors := make([]tapz.Interceptor[any], s.Interceptors)
	for i := range interceptors {
		interceptors[i] = tapz.Interceptor[any]{Name: fmt.Sprintf("interceptor-%d", i)}
	}

	routine, err := tapz.Compile(d, taps, interceptors)
	if err != nil {
		e.Shape = d
		e.Err = err
		return e
	}
	e.Shape = routine.Descriptor()
	e.Strategy = routine.Strategy()
	e.Wrapper = wrappers[routine.Convention()]
	return e
}

func explain(out io.Writer, shapes *Shapes) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HOOK\tSTRATEGY\tWRAPPER\tSHAPE")

	failed := 0
	for _, s := range shapes.Hooks {
		e := explainShape(s)
		if e.Err != nil {
			failed++
			fmt.Fprintf(w, "%s\t%s\t-\t%v\n", e.Name, "error", e.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Strategy, e.Wrapper, e.Shape)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d hook shapes do not compile", failed, len(shapes.Hooks))
	}
	return nil
}
