package core

import (
	"sync"
	"testing"

	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

type recordedEvent struct {
	Type string
	Data map[string]any
}

// recordingEvents implements EventLogger for tests.
type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEvents) LogEvent(eventType string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, Data: data})
	return nil
}

func (r *recordingEvents) ofType(eventType string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	dir    string
	tasks  storage.TaskStoreManager
	deps   storage.DependencyStoreManager
	events *recordingEvents
	tm     TaskManager
	dm     DependencyManager
	gs     GraphService
}

func newTestEnv(t *testing.T, guard models.GuardMode) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:    dir,
		tasks:  storage.NewTaskStoreManager(dir),
		deps:   storage.NewDependencyStoreManager(dir),
		events: &recordingEvents{},
	}
	env.tm = NewTaskManager(dir, env.tasks, env.deps, guard, nil, env.events)
	env.dm = NewDependencyManager(dir, env.tasks, env.deps, nil, env.events)
	env.gs = NewGraphService(NewStoreSnapshotSource(env.tasks, env.deps), GraphServiceConfig{}, nil, env.events)
	return env
}

func (env *testEnv) addTasks(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, err := env.tm.CreateTask(models.Task{ID: id, Title: "task " + id}); err != nil {
			t.Fatalf("creating %s: %v", id, err)
		}
	}
}

func (env *testEnv) block(t *testing.T, taskID, dependsOn string) *models.DependencyEdge {
	t.Helper()
	edge, err := env.dm.AddDependency(taskID, dependsOn, models.DependencyBlocking)
	if err != nil {
		t.Fatalf("adding %s -> %s: %v", taskID, dependsOn, err)
	}
	return edge
}
