// Package cli implements the tg command tree. Services are injected into
// package-level variables by the application wiring before Execute runs.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "tg",
	Short: "taskgraph - task dependency graph engine",
	Long: `taskgraph (tg) tracks tasks and the dependencies between them.

It lays the dependency graph out in levels, answers whether a task may start,
finds the critical path of blocking work, and refuses dependencies that would
deadlock the graph. The graph can be inspected from the command line, in a
live terminal view, or by an AI assistant over MCP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tg %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
