// Package cmd defines and implements the CLI commands for the
// tracecollect executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracecollect",
		Short: "Collects browser-performance traces for a fixed URL list.",
		Long: `tracecollect drives two trace backends for every configured URL: a
remote performance-testing service simulating a throttled mobile network,
and a local unthrottled run of a page-load analyzer. Raw traces land in
the output directory alongside a resumable manifest, and the finished
directory is zipped into a single artifact.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	cmd.AddCommand(newCollectCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
