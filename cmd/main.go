package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "tapz",
		Short: "Waterfall hook demos and routine inspection",
		Long: `tapz is a CLI tool for exploring compiled waterfall hooks.

Run the reference waterfall under each invocation convention, or explain
which combining strategy and wrapper a set of hook shapes compiles to.`,
		Version: version,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(explainCmd)
}
