// Package cli implements the command-line interface for wbstrack.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexander-akhmetov/wbstrack/internal/debug"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

var (
	flagDB     string
	flagOutbox string
	flagActor  string
	flagDebug  bool
)

var rootCmd = &cobra.Command{
	Use:   "wbstrack",
	Short: "Track construction work breakdown progress and approvals",
	Long: `wbstrack keeps a project's work breakdown structure (packages, subpackages
and tasks) in a local database. Submitters report task progress, reviewers
approve or reject it, and approvals cascade upward: a subpackage whose tasks
are all approved is submitted for review, and so on up to the project.

Locations (package, subpackage, task) are given as zero-based indices as
shown by "wbstrack show", or as names.

Notifications and rewards are written to an outbox file.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagDebug {
			debug.SetEnabled(true)
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Path to the project database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagOutbox, "outbox", "", "Path to the outbox file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", os.Getenv("WBSTRACK_ACTOR"), "User performing the action (default: $WBSTRACK_ACTOR)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Print debug diagnostics to stderr")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(reviewLevelCmd)
	rootCmd.AddCommand(resubmitLevelCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(outboxCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(configCmd)
}
