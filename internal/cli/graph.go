package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskgraph/internal/core"
	"github.com/valter-silva-au/taskgraph/internal/graph"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

var (
	graphMatch      string
	graphLayoutJSON bool
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect the dependency graph",
	Long: `Inspect the dependency graph.

--match restricts every subcommand to tasks whose ID matches a glob pattern
such as 'API-*' or '{AUTH,DB}-?'. Dependencies on tasks outside the match
are dropped from the view.`,
}

var graphLevelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Print tasks grouped by topological level",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := graphServiceFor(graphMatch)
		if err != nil {
			return err
		}
		levels, err := svc.Levels()
		if err != nil {
			return graphError(cmd, err)
		}

		out := cmd.OutOrStdout()
		if len(levels) == 0 {
			fmt.Fprintln(out, "No tasks.")
			return nil
		}
		for l, ids := range groupLevels(levels) {
			fmt.Fprintf(out, "L%d: %s\n", l, strings.Join(ids, ", "))
		}
		return nil
	},
}

var graphCriticalCmd = &cobra.Command{
	Use:   "critical",
	Short: "Print the longest chain of blocking dependencies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := graphServiceFor(graphMatch)
		if err != nil {
			return err
		}
		cp, err := svc.CriticalPath()
		if err != nil {
			return graphError(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderCriticalPath(cp))
		return nil
	},
}

var graphLayoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print node positions, edges and the critical path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := graphServiceFor(graphMatch)
		if err != nil {
			return err
		}
		layout, err := svc.ComputeLayout()
		if err != nil {
			return graphError(cmd, err)
		}

		out := cmd.OutOrStdout()
		if graphLayoutJSON {
			data, err := json.MarshalIndent(layout, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting layout as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "%-14s %-6s %-10s %s\n", "TASK", "LEVEL", "X", "Y")
		for _, n := range layout.Nodes {
			fmt.Fprintf(out, "%-14s %-6d %-10.1f %.1f\n", n.TaskID, n.Level, n.X, n.Y)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderEdges(layout))
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderCriticalPath(layout.CriticalPath))
		return nil
	},
}

var graphShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Draw the graph in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := graphServiceFor(graphMatch)
		if err != nil {
			return err
		}
		layout, err := svc.ComputeLayout()
		if err != nil {
			return graphError(cmd, err)
		}
		tasks, err := listSnapshotTasks()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderGraph(layout, taskIndex(tasks), terminalWidth()))
		return nil
	},
}

// graphServiceFor returns the shared GraphService, or one over a snapshot
// filtered by the glob pattern when pattern is non-empty.
func graphServiceFor(pattern string) (core.GraphService, error) {
	if pattern == "" {
		if GraphSvc == nil {
			return nil, fmt.Errorf("graph service not initialized")
		}
		return GraphSvc, nil
	}
	if Snapshot == nil {
		return nil, fmt.Errorf("graph service not initialized")
	}
	keep, err := matchTaskIDs(pattern)
	if err != nil {
		return nil, err
	}
	cfg := GraphConfig
	cfg.Filtered = true
	return core.NewGraphService(core.FilterSource(Snapshot, keep), cfg, Logger, Events), nil
}

func matchTaskIDs(pattern string) (core.TaskPredicate, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid --match pattern %q: %w", pattern, err)
	}
	return func(t models.Task) bool { return g.Match(t.ID) }, nil
}

func listSnapshotTasks() ([]models.Task, error) {
	if Snapshot == nil {
		return nil, fmt.Errorf("graph service not initialized")
	}
	tasks, err := Snapshot.ListTasks()
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// graphError prints the deadlock banner for cycles before returning err.
func graphError(cmd *cobra.Command, err error) error {
	var cycle *graph.CycleError
	if errors.As(err, &cycle) {
		printDeadlockBanner(cmd.ErrOrStderr(), cycle)
	}
	return err
}

// groupLevels turns a level map into ID lists indexed by level, each sorted.
func groupLevels(levels map[string]int) [][]string {
	var grouped [][]string
	for id, l := range levels {
		for len(grouped) <= l {
			grouped = append(grouped, nil)
		}
		grouped[l] = append(grouped[l], id)
	}
	for _, ids := range grouped {
		sort.Strings(ids)
	}
	return grouped
}

func init() {
	graphCmd.PersistentFlags().StringVar(&graphMatch, "match", "", "Only include tasks whose ID matches this glob")
	graphLayoutCmd.Flags().BoolVar(&graphLayoutJSON, "json", false, "Output the layout as JSON")

	graphCmd.AddCommand(graphLevelsCmd, graphCriticalCmd, graphLayoutCmd, graphShowCmd)
	rootCmd.AddCommand(graphCmd)
}
