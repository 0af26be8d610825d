package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskgraph/internal/graph"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependencies between tasks",
}

var depAddCmd = &cobra.Command{
	Use:   "add <task> <depends-on>",
	Short: "Record that a task depends on another",
	Long: `Record that <task> depends on <depends-on>.

Blocking dependencies (the default) keep <task> from starting until
<depends-on> is completed. Informational dependencies are drawn but never
block. A dependency that would close a cycle is refused whatever its type.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if DepMgr == nil {
			return fmt.Errorf("dependency manager not initialized")
		}
		typeName, _ := cmd.Flags().GetString("type")
		typ, err := models.ParseDependencyType(typeName)
		if err != nil {
			return err
		}

		edge, err := DepMgr.AddDependency(args[0], args[1], typ)
		if err != nil {
			var cycle *graph.CycleError
			if errors.As(err, &cycle) {
				printDeadlockBanner(cmd.ErrOrStderr(), cycle)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s depends on %s (%s)\n", edge.ID, edge.TaskID, edge.DependsOnTaskID, edge.Type)
		return nil
	},
}

var depRmCmd = &cobra.Command{
	Use:   "rm <edge-id>",
	Short: "Remove a dependency by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if DepMgr == nil {
			return fmt.Errorf("dependency manager not initialized")
		}
		if err := DepMgr.RemoveDependency(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	},
}

var depListCmd = &cobra.Command{
	Use:   "list [task]",
	Short: "List dependencies, optionally those touching one task",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if DepMgr == nil {
			return fmt.Errorf("dependency manager not initialized")
		}
		taskID := ""
		if len(args) == 1 {
			taskID = args[0]
		}
		edges, err := DepMgr.ListDependencies(taskID)
		if err != nil {
			return fmt.Errorf("listing dependencies: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(edges) == 0 {
			fmt.Fprintln(out, "No dependencies found.")
			return nil
		}
		fmt.Fprintf(out, "%-10s %-14s %-14s %s\n", "ID", "TASK", "DEPENDS ON", "TYPE")
		for _, e := range edges {
			fmt.Fprintf(out, "%-10s %-14s %-14s %s\n", e.ID, e.TaskID, e.DependsOnTaskID, e.Type)
		}
		return nil
	},
}

func init() {
	depAddCmd.Flags().String("type", "blocking", "Dependency type (blocking, informational)")

	depCmd.AddCommand(depAddCmd, depRmCmd, depListCmd)
	rootCmd.AddCommand(depCmd)
}
