package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskgraph/internal/core"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <id> <title>",
	Short: "Add a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		task := models.Task{ID: args[0], Title: args[1]}
		if p, _ := cmd.Flags().GetString("priority"); p != "" {
			priority, err := models.ParsePriority(p)
			if err != nil {
				return err
			}
			task.Priority = priority
		}
		if s, _ := cmd.Flags().GetString("status"); s != "" {
			status, err := models.ParseTaskStatus(s)
			if err != nil {
				return err
			}
			task.Status = status
		}

		created, err := TaskMgr.CreateTask(task)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created task %s (%s, %s)\n", created.ID, created.Status, created.Priority)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		var tasks []models.Task
		var err error
		if s, _ := cmd.Flags().GetString("status"); s != "" {
			status, perr := models.ParseTaskStatus(s)
			if perr != nil {
				return perr
			}
			tasks, err = TaskMgr.GetTasksByStatus(status)
		} else {
			tasks, err = TaskMgr.GetAllTasks()
		}
		if err != nil {
			return fmt.Errorf("fetching tasks: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks found.")
			return nil
		}
		printTaskTable(out, tasks)
		return nil
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Change a task's status",
	Long: `Change a task's status to pending, in_progress or completed.

Moving a task to in_progress runs the start guard: while any blocking
dependency is not completed the change is refused (guard_mode: enforce),
logged and allowed (warn), or not checked (off). --force skips the guard.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		status, err := models.ParseTaskStatus(args[1])
		if err != nil {
			return err
		}

		force, _ := cmd.Flags().GetBool("force")
		if force {
			err = TaskMgr.ForceTaskStatus(args[0], status)
		} else {
			err = TaskMgr.UpdateTaskStatus(args[0], status)
		}
		if err != nil {
			var blocked *core.StartBlockedError
			if errors.As(err, &blocked) {
				return fmt.Errorf("%w (use --force to override)", err)
			}
			return fmt.Errorf("updating status: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", args[0], status)
		return nil
	},
}

var taskPriorityCmd = &cobra.Command{
	Use:   "priority <id> <high|medium|low>",
	Short: "Change a task's priority",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		priority, err := models.ParsePriority(args[1])
		if err != nil {
			return err
		}
		if err := TaskMgr.UpdateTaskPriority(args[0], priority); err != nil {
			return fmt.Errorf("updating priority: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s priority set to %s\n", args[0], priority)
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a task and every dependency touching it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		removed, err := TaskMgr.RemoveTask(args[0])
		if err != nil {
			return fmt.Errorf("removing task: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed task %s (%d dependencies dropped)\n", args[0], removed)
		return nil
	},
}

func printTaskTable(out io.Writer, tasks []models.Task) {
	fmt.Fprintf(out, "%-14s %-12s %-8s %s\n", "ID", "STATUS", "PRI", "TITLE")
	fmt.Fprintf(out, "%-14s %-12s %-8s %s\n", "--", "------", "---", "-----")
	for _, t := range tasks {
		fmt.Fprintf(out, "%-14s %-12s %-8s %s\n", t.ID, t.Status, t.Priority, t.Title)
	}
}

func init() {
	taskAddCmd.Flags().String("priority", "", "Task priority (high, medium, low)")
	taskAddCmd.Flags().String("status", "", "Initial status (pending, in_progress, completed)")
	taskListCmd.Flags().String("status", "", "Only list tasks with this status")
	taskStatusCmd.Flags().Bool("force", false, "Skip the start guard")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskStatusCmd, taskPriorityCmd, taskRmCmd)
	rootCmd.AddCommand(taskCmd)
}
