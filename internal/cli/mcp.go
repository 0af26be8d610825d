package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	tgmcp "github.com/valter-silva-au/taskgraph/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the tg MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tg MCP server on stdio",
	Long: `Start the tg MCP server on stdio transport.

The server exposes the graph as MCP tools that AI coding assistants can call:
list_tasks, get_task, compute_layout, can_start, critical_path, ready_tasks,
add_dependency, remove_dependency, update_task_status, get_alerts and
get_metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil || DepMgr == nil || GraphSvc == nil {
			return fmt.Errorf("services not initialized")
		}

		srv := tgmcp.NewServer(tgmcp.Services{
			Tasks:        TaskMgr,
			Dependencies: DepMgr,
			Graph:        GraphSvc,
			Alerts:       AlertEngine,
			Metrics:      MetricsCalc,
		}, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
