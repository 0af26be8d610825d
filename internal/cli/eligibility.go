package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var canStartCmd = &cobra.Command{
	Use:   "can-start <id>",
	Short: "Report whether a task may start",
	Long: `Report whether every blocking dependency of a task is completed.
Exits with an error listing the unmet blockers when it is not.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if GraphSvc == nil {
			return fmt.Errorf("graph service not initialized")
		}
		g, err := GraphSvc.Build()
		if err != nil {
			return err
		}
		ok, err := g.CanStart(args[0])
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s can start\n", args[0])
			return nil
		}
		unmet, _ := g.UnmetBlockers(args[0])
		return fmt.Errorf("%s cannot start: waiting on %s", args[0], strings.Join(unmet, ", "))
	},
}

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List pending tasks whose blocking dependencies are completed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if GraphSvc == nil {
			return fmt.Errorf("graph service not initialized")
		}
		tasks, err := GraphSvc.Ready()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks are ready to start.")
			return nil
		}
		printTaskTable(out, tasks)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(canStartCmd, readyCmd)
}
