package core

import (
	"fmt"

	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// SnapshotSource is the pull side of the task repository: every call returns
// the current state as flat lists, and the graph engine never sees deltas.
type SnapshotSource interface {
	ListTasks() ([]models.Task, error)
	// ListDependencies returns every edge touching taskID, or all edges when
	// taskID is empty.
	ListDependencies(taskID string) ([]models.DependencyEdge, error)
}

// ChangeNotifier is the push side: subscribers are called with no payload
// whenever tasks or dependencies may have changed.
type ChangeNotifier interface {
	Subscribe(fn func()) (unsubscribe func())
}

// TaskStore is the subset of storage.TaskStoreManager that core needs.
// storage types satisfy it directly, so core does not import storage.
type TaskStore interface {
	AddTask(task models.Task) error
	UpdateTask(taskID string, updates models.Task) error
	RemoveTask(taskID string) error
	GetTask(taskID string) (*models.Task, error)
	GetAllTasks() ([]models.Task, error)
	Load() error
	Save() error
}

// DependencyStore is the subset of storage.DependencyStoreManager that core needs.
type DependencyStore interface {
	AddDependency(edge models.DependencyEdge) (models.DependencyEdge, error)
	RemoveDependency(edgeID string) error
	ListDependencies(taskID string) ([]models.DependencyEdge, error)
	RemoveDependenciesFor(taskID string) (int, error)
	Load() error
	Save() error
}

type storeSnapshotSource struct {
	tasks TaskStore
	deps  DependencyStore
}

// NewStoreSnapshotSource returns a SnapshotSource that reloads both YAML
// files on every call, so edits made by other processes are always visible.
func NewStoreSnapshotSource(tasks TaskStore, deps DependencyStore) SnapshotSource {
	return &storeSnapshotSource{tasks: tasks, deps: deps}
}

func (s *storeSnapshotSource) ListTasks() ([]models.Task, error) {
	if err := s.tasks.Load(); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return s.tasks.GetAllTasks()
}

func (s *storeSnapshotSource) ListDependencies(taskID string) ([]models.DependencyEdge, error) {
	if err := s.deps.Load(); err != nil {
		return nil, fmt.Errorf("listing dependencies: %w", err)
	}
	return s.deps.ListDependencies(taskID)
}

// TaskPredicate selects tasks for a filtered snapshot.
type TaskPredicate func(models.Task) bool

type filteredSource struct {
	src  SnapshotSource
	keep TaskPredicate
}

// FilterSource restricts src to tasks matching keep. Edges are passed through
// unchanged; the graph builder drops those whose endpoints were filtered out.
func FilterSource(src SnapshotSource, keep TaskPredicate) SnapshotSource {
	if keep == nil {
		return src
	}
	return &filteredSource{src: src, keep: keep}
}

func (f *filteredSource) ListTasks() ([]models.Task, error) {
	all, err := f.src.ListTasks()
	if err != nil {
		return nil, err
	}
	kept := make([]models.Task, 0, len(all))
	for _, t := range all {
		if f.keep(t) {
			kept = append(kept, t)
		}
	}
	return kept, nil
}

func (f *filteredSource) ListDependencies(taskID string) ([]models.DependencyEdge, error) {
	return f.src.ListDependencies(taskID)
}

// snapshot pulls tasks and all edges in one go.
func snapshot(src SnapshotSource) ([]models.Task, []models.DependencyEdge, error) {
	tasks, err := src.ListTasks()
	if err != nil {
		return nil, nil, err
	}
	edges, err := src.ListDependencies("")
	if err != nil {
		return nil, nil, err
	}
	return tasks, edges, nil
}
