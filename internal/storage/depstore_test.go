package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/taskgraph/pkg/models"
)

func newTestDependencyStore(t *testing.T) *fileDependencyStore {
	t.Helper()
	return NewDependencyStoreManager(t.TempDir()).(*fileDependencyStore)
}

func edge(taskID, dependsOn string, typ models.DependencyType) models.DependencyEdge {
	return models.DependencyEdge{TaskID: taskID, DependsOnTaskID: dependsOn, Type: typ}
}

func TestAddDependency_AssignsIDs(t *testing.T) {
	store := newTestDependencyStore(t)

	first, err := store.AddDependency(edge("T2", "T1", models.DependencyBlocking))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := store.AddDependency(edge("T3", "T1", models.DependencyInformational))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != "DEP-00001" || second.ID != "DEP-00002" {
		t.Fatalf("unexpected ids %s, %s", first.ID, second.ID)
	}
	if first.Created.IsZero() {
		t.Error("expected created timestamp")
	}
}

func TestAddDependency_RejectsDuplicate(t *testing.T) {
	store := newTestDependencyStore(t)
	if _, err := store.AddDependency(edge("T2", "T1", models.DependencyBlocking)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.AddDependency(edge("T2", "T1", models.DependencyBlocking)); err == nil {
		t.Fatal("expected duplicate error")
	}
	// Same endpoints with a different type is a distinct edge.
	if _, err := store.AddDependency(edge("T2", "T1", models.DependencyInformational)); err != nil {
		t.Fatalf("unexpected error for different type: %v", err)
	}
}

func TestAddDependency_Invalid(t *testing.T) {
	store := newTestDependencyStore(t)
	if _, err := store.AddDependency(edge("", "T1", models.DependencyBlocking)); err == nil {
		t.Fatal("expected error for empty task id")
	}
	if _, err := store.AddDependency(models.DependencyEdge{TaskID: "T2", DependsOnTaskID: "T1"}); err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestRemoveDependency(t *testing.T) {
	store := newTestDependencyStore(t)
	e, _ := store.AddDependency(edge("T2", "T1", models.DependencyBlocking))

	if err := store.RemoveDependency(e.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.RemoveDependency(e.ID); err == nil {
		t.Fatal("expected error removing twice")
	}
	all, _ := store.ListDependencies("")
	if len(all) != 0 {
		t.Fatalf("expected no edges, got %d", len(all))
	}
}

func TestListDependencies_ByTask(t *testing.T) {
	store := newTestDependencyStore(t)
	_, _ = store.AddDependency(edge("T2", "T1", models.DependencyBlocking))
	_, _ = store.AddDependency(edge("T3", "T2", models.DependencyBlocking))
	_, _ = store.AddDependency(edge("T4", "T1", models.DependencyInformational))

	got, err := store.ListDependencies("T2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 edges touching T2, got %d", len(got))
	}
	all, _ := store.ListDependencies("")
	if len(all) != 3 {
		t.Fatalf("expected 3 edges, got %d", len(all))
	}
}

func TestRemoveDependenciesFor(t *testing.T) {
	store := newTestDependencyStore(t)
	_, _ = store.AddDependency(edge("T2", "T1", models.DependencyBlocking))
	_, _ = store.AddDependency(edge("T3", "T2", models.DependencyBlocking))
	_, _ = store.AddDependency(edge("T4", "T1", models.DependencyInformational))

	n, err := store.RemoveDependenciesFor("T2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	left, _ := store.ListDependencies("")
	if len(left) != 1 || left[0].TaskID != "T4" {
		t.Fatalf("unexpected remaining edges %+v", left)
	}
}

func TestDependencyStore_SaveAndLoad(t *testing.T) {
	store := newTestDependencyStore(t)
	_, _ = store.AddDependency(edge("T2", "T1", models.DependencyBlocking))
	_, _ = store.AddDependency(edge("T3", "T1", models.DependencyInformational))
	if err := store.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(store.basePath, DependenciesFileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "type: blocking") || !strings.Contains(string(raw), "type: informational") {
		t.Fatalf("expected dependency types as text, got:\n%s", raw)
	}

	reloaded := NewDependencyStoreManager(store.basePath)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	edges, _ := reloaded.ListDependencies("")
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
	if edges[0].Type != models.DependencyBlocking || edges[1].Type != models.DependencyInformational {
		t.Fatalf("types not preserved: %+v", edges)
	}

	next, err := reloaded.AddDependency(edge("T4", "T1", models.DependencyBlocking))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.ID != "DEP-00003" {
		t.Fatalf("expected counter to continue at DEP-00003, got %s", next.ID)
	}
}

func TestDependencyStore_LoadRejectsUnknownType(t *testing.T) {
	dir := t.TempDir()
	content := "version: \"1.0\"\ndependencies:\n  - id: DEP-00001\n    task_id: T2\n    depends_on_task_id: T1\n    type: soft\n"
	if err := os.WriteFile(filepath.Join(dir, DependenciesFileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := NewDependencyStoreManager(dir).Load(); err == nil {
		t.Fatal("expected error for unknown dependency type")
	}
}

func TestDependencyStore_LoadRecoversCounter(t *testing.T) {
	dir := t.TempDir()
	content := "version: \"1.0\"\ndependencies:\n  - id: DEP-00041\n    task_id: T2\n    depends_on_task_id: T1\n    type: blocking\n"
	if err := os.WriteFile(filepath.Join(dir, DependenciesFileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	store := NewDependencyStoreManager(dir)
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	e, err := store.AddDependency(edge("T3", "T1", models.DependencyBlocking))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != "DEP-00042" {
		t.Fatalf("expected DEP-00042, got %s", e.ID)
	}
}
