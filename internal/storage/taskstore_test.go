package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/taskgraph/pkg/models"
)

func newTestTaskStore(t *testing.T) *fileTaskStore {
	t.Helper()
	dir := t.TempDir()
	store := NewTaskStoreManager(dir).(*fileTaskStore)
	store.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	return store
}

func sampleTask(id string) models.Task {
	return models.Task{
		ID:       id,
		Title:    "Test task " + id,
		Status:   models.StatusPending,
		Priority: models.PriorityHigh,
	}
}

func TestAddTask(t *testing.T) {
	store := newTestTaskStore(t)
	if err := store.AddTask(sampleTask("T1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.GetTask("T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Test task T1" {
		t.Fatalf("expected title %q, got %q", "Test task T1", got.Title)
	}
	if got.Created.IsZero() || got.Updated.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
}

func TestAddTask_Defaults(t *testing.T) {
	store := newTestTaskStore(t)
	if err := store.AddTask(models.Task{ID: "T1", Title: "bare"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := store.GetTask("T1")
	if got.Status != models.StatusPending {
		t.Errorf("expected default status pending, got %q", got.Status)
	}
	if got.Priority != models.PriorityMedium {
		t.Errorf("expected default priority medium, got %q", got.Priority)
	}
}

func TestAddTask_Invalid(t *testing.T) {
	tests := []struct {
		name string
		task models.Task
	}{
		{"empty id", models.Task{Title: "no id"}},
		{"bad status", models.Task{ID: "T1", Status: "blocked"}},
		{"bad priority", models.Task{ID: "T1", Priority: "P0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestTaskStore(t)
			if err := store.AddTask(tt.task); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestAddTask_DuplicateID(t *testing.T) {
	store := newTestTaskStore(t)
	if err := store.AddTask(sampleTask("T1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.AddTask(sampleTask("T1")); err == nil {
		t.Fatal("expected error for duplicate ID")
	}
}

func TestUpdateTask(t *testing.T) {
	store := newTestTaskStore(t)
	if err := store.AddTask(sampleTask("T1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.UpdateTask("T1", models.Task{Status: models.StatusInProgress}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := store.GetTask("T1")
	if got.Status != models.StatusInProgress {
		t.Fatalf("expected status in_progress, got %q", got.Status)
	}
	// Fields not in the update should be preserved.
	if got.Priority != models.PriorityHigh {
		t.Fatalf("expected priority preserved, got %q", got.Priority)
	}
}

func TestUpdateTask_NotFound(t *testing.T) {
	store := newTestTaskStore(t)
	if err := store.UpdateTask("T9", models.Task{Title: "nope"}); err == nil {
		t.Fatal("expected error for missing task")
	}
}

func TestUpdateTask_InvalidStatus(t *testing.T) {
	store := newTestTaskStore(t)
	_ = store.AddTask(sampleTask("T1"))
	if err := store.UpdateTask("T1", models.Task{Status: "done"}); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestRemoveTask(t *testing.T) {
	store := newTestTaskStore(t)
	_ = store.AddTask(sampleTask("T1"))

	if err := store.RemoveTask("T1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.GetTask("T1"); err == nil {
		t.Fatal("expected error after removal")
	}
	if err := store.RemoveTask("T1"); err == nil {
		t.Fatal("expected error removing twice")
	}
}

func TestGetAllTasks_Sorted(t *testing.T) {
	store := newTestTaskStore(t)
	for _, id := range []string{"T3", "T1", "T2"} {
		_ = store.AddTask(sampleTask(id))
	}
	tasks, err := store.GetAllTasks()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	if strings.Join(ids, ",") != "T1,T2,T3" {
		t.Fatalf("expected sorted ids, got %v", ids)
	}
}

func TestFilterTasks(t *testing.T) {
	store := newTestTaskStore(t)
	_ = store.AddTask(models.Task{ID: "T1", Status: models.StatusPending, Priority: models.PriorityHigh})
	_ = store.AddTask(models.Task{ID: "T2", Status: models.StatusCompleted, Priority: models.PriorityHigh})
	_ = store.AddTask(models.Task{ID: "T3", Status: models.StatusPending, Priority: models.PriorityLow})

	got, err := store.FilterTasks(TaskFilter{
		Status:   []models.TaskStatus{models.StatusPending},
		Priority: []models.Priority{models.PriorityHigh},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "T1" {
		t.Fatalf("expected only T1, got %+v", got)
	}
}

func TestTaskStore_SaveAndLoad(t *testing.T) {
	store := newTestTaskStore(t)
	_ = store.AddTask(sampleTask("T1"))
	_ = store.AddTask(sampleTask("T2"))
	if err := store.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := NewTaskStoreManager(store.basePath)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	tasks, _ := reloaded.GetAllTasks()
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks after reload, got %d", len(tasks))
	}
	if tasks[0].Priority != models.PriorityHigh {
		t.Errorf("expected priority preserved, got %q", tasks[0].Priority)
	}

	// No temp files should be left behind.
	entries, _ := os.ReadDir(store.basePath)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestTaskStore_LoadMissingFile(t *testing.T) {
	store := newTestTaskStore(t)
	if err := store.Load(); err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	tasks, _ := store.GetAllTasks()
	if len(tasks) != 0 {
		t.Fatalf("expected empty store, got %d tasks", len(tasks))
	}
}

func TestTaskStore_LoadUsesMapKeyAsID(t *testing.T) {
	dir := t.TempDir()
	content := "version: \"1.0\"\ntasks:\n  T7:\n    title: hand written\n    status: completed\n    priority: low\n"
	if err := os.WriteFile(filepath.Join(dir, TasksFileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	store := NewTaskStoreManager(dir)
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	got, err := store.GetTask("T7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "T7" || got.Status != models.StatusCompleted {
		t.Fatalf("unexpected task %+v", got)
	}
}

func TestTaskStore_LoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, TasksFileName), []byte("tasks: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := NewTaskStoreManager(dir).Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
