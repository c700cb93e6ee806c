// Package cmd wires the repo-dashboard command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "repo-dashboard",
	Short:   "Build a GitHub repository dashboard workbook.",
	Version: version,
	Long: `repo-dashboard polls the GitHub API for a configured list of repositories,
aggregates their counters (stars, forks, issues, pull requests, size, language)
and renders an Excel workbook with a summary, the full table and embedded charts.`,
}

// Execute runs the root command. An interrupt cancels in-flight requests and
// any error exits with status 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
}
