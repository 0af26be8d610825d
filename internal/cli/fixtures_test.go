package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/valter-silva-au/taskgraph/internal/core"
	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// setupCLI points the package-level services at a fresh store in a temp
// directory and restores the previous values when the test ends.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	origTask, origDep, origGraph := TaskMgr, DepMgr, GraphSvc
	origSnap, origCfg, origStore := Snapshot, GraphConfig, StoreDir
	t.Cleanup(func() {
		TaskMgr, DepMgr, GraphSvc = origTask, origDep, origGraph
		Snapshot, GraphConfig, StoreDir = origSnap, origCfg, origStore
	})

	tasks := storage.NewTaskStoreManager(dir)
	deps := storage.NewDependencyStoreManager(dir)
	src := core.NewStoreSnapshotSource(tasks, deps)

	TaskMgr = core.NewTaskManager(dir, tasks, deps, models.GuardEnforce, nil, nil)
	DepMgr = core.NewDependencyManager(dir, tasks, deps, nil, nil)
	Snapshot = src
	GraphConfig = core.GraphServiceConfig{}
	GraphSvc = core.NewGraphService(src, GraphConfig, nil, nil)
	StoreDir = dir
	return dir
}

// runCLI executes the root command with args and returns what it wrote.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// resetFlags restores every flag to its default, since the command tree is
// shared between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("tg %v: %v\n%s", args, err, stderr)
	}
	return out
}

// seedGraph creates A <- B <- C (blocking) plus D informational on A.
func seedGraph(t *testing.T) {
	t.Helper()
	for _, id := range []string{"A", "B", "C", "D"} {
		mustRun(t, "task", "add", id, "task "+id)
	}
	mustRun(t, "dep", "add", "B", "A")
	mustRun(t, "dep", "add", "C", "B")
	mustRun(t, "dep", "add", "D", "A", "--type", "informational")
}
