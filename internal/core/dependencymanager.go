package core

import (
	"errors"
	"fmt"

	"github.com/valter-silva-au/taskgraph/internal/graph"
	"github.com/valter-silva-au/taskgraph/internal/logging"
	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// DependencyManager mutates the dependency registry. Every insertion is
// checked against the current snapshot so the stored graph stays acyclic.
type DependencyManager interface {
	AddDependency(taskID, dependsOnTaskID string, typ models.DependencyType) (*models.DependencyEdge, error)
	RemoveDependency(edgeID string) error
	ListDependencies(taskID string) ([]models.DependencyEdge, error)
}

type dependencyManager struct {
	storeDir string
	tasks    TaskStore
	deps     DependencyStore
	log      *logging.Logger
	events   EventLogger
}

// NewDependencyManager creates a DependencyManager. storeDir is where the
// store lock lives; log and events may be nil.
func NewDependencyManager(storeDir string, tasks TaskStore, deps DependencyStore, log *logging.Logger, events EventLogger) DependencyManager {
	if log == nil {
		log = logging.NopLogger()
	}
	return &dependencyManager{
		storeDir: storeDir,
		tasks:    tasks,
		deps:     deps,
		log:      log.WithComponent("dependencies"),
		events:   eventLoggerOrNop(events),
	}
}

// AddDependency records that taskID depends on dependsOnTaskID. It fails with
// *graph.UnknownTaskError when either task is missing and *graph.CycleError
// when the edge would close a cycle of any dependency type.
func (dm *dependencyManager) AddDependency(taskID, dependsOnTaskID string, typ models.DependencyType) (*models.DependencyEdge, error) {
	taskID = storage.NormalizeTaskID(taskID)
	dependsOnTaskID = storage.NormalizeTaskID(dependsOnTaskID)
	if !typ.IsValid() {
		return nil, fmt.Errorf("adding dependency: invalid dependency type")
	}

	unlock, err := lockStore(dm.storeDir)
	if err != nil {
		return nil, fmt.Errorf("adding dependency: %w", err)
	}
	defer func() { _ = unlock() }()

	if err := dm.tasks.Load(); err != nil {
		return nil, fmt.Errorf("adding dependency: %w", err)
	}
	if err := dm.deps.Load(); err != nil {
		return nil, fmt.Errorf("adding dependency: %w", err)
	}
	tasks, err := dm.tasks.GetAllTasks()
	if err != nil {
		return nil, fmt.Errorf("adding dependency: %w", err)
	}
	edges, err := dm.deps.ListDependencies("")
	if err != nil {
		return nil, fmt.Errorf("adding dependency: %w", err)
	}

	g := graph.Build(tasks, edges)
	for _, id := range []string{taskID, dependsOnTaskID} {
		if !g.HasTask(id) {
			err := &graph.UnknownTaskError{TaskID: id}
			dm.reject(taskID, dependsOnTaskID, typ, "unknown_task", nil)
			return nil, fmt.Errorf("adding dependency: %w", err)
		}
	}
	if closes, path := g.WouldCreateCycle(taskID, dependsOnTaskID); closes {
		reason := "cycle"
		if taskID == dependsOnTaskID {
			reason = "self_dependency"
		}
		dm.reject(taskID, dependsOnTaskID, typ, reason, path)
		return nil, fmt.Errorf("adding dependency %s -> %s: %w", taskID, dependsOnTaskID, &graph.CycleError{TaskIDs: path})
	}

	edge, err := dm.deps.AddDependency(models.DependencyEdge{
		TaskID:          taskID,
		DependsOnTaskID: dependsOnTaskID,
		Type:            typ,
	})
	if err != nil {
		dm.reject(taskID, dependsOnTaskID, typ, "duplicate", nil)
		return nil, err
	}
	if err := dm.deps.Save(); err != nil {
		return nil, fmt.Errorf("adding dependency: %w", err)
	}

	dm.log.Info("dependency added", "edge_id", edge.ID, "task_id", edge.TaskID,
		"depends_on", edge.DependsOnTaskID, "type", edge.Type.String())
	dm.logEvent(eventDependencyAdded, map[string]any{
		"edge_id":    edge.ID,
		"task_id":    edge.TaskID,
		"depends_on": edge.DependsOnTaskID,
		"type":       edge.Type.String(),
	})
	return &edge, nil
}

func (dm *dependencyManager) RemoveDependency(edgeID string) error {
	unlock, err := lockStore(dm.storeDir)
	if err != nil {
		return fmt.Errorf("removing dependency: %w", err)
	}
	defer func() { _ = unlock() }()

	if err := dm.deps.Load(); err != nil {
		return fmt.Errorf("removing dependency: %w", err)
	}
	var removed *models.DependencyEdge
	edges, err := dm.deps.ListDependencies("")
	if err != nil {
		return fmt.Errorf("removing dependency: %w", err)
	}
	for i := range edges {
		if edges[i].ID == edgeID {
			removed = &edges[i]
			break
		}
	}
	if err := dm.deps.RemoveDependency(edgeID); err != nil {
		return err
	}
	if err := dm.deps.Save(); err != nil {
		return fmt.Errorf("removing dependency: %w", err)
	}

	data := map[string]any{"edge_id": edgeID}
	if removed != nil {
		data["task_id"] = removed.TaskID
		data["depends_on"] = removed.DependsOnTaskID
		data["type"] = removed.Type.String()
	}
	dm.log.Info("dependency removed", "edge_id", edgeID)
	dm.logEvent(eventDependencyRemoved, data)
	return nil
}

func (dm *dependencyManager) ListDependencies(taskID string) ([]models.DependencyEdge, error) {
	if err := dm.deps.Load(); err != nil {
		return nil, fmt.Errorf("listing dependencies: %w", err)
	}
	return dm.deps.ListDependencies(taskID)
}

func (dm *dependencyManager) reject(taskID, dependsOn string, typ models.DependencyType, reason string, path []string) {
	dm.log.Warn("dependency rejected", "task_id", taskID, "depends_on", dependsOn, "reason", reason)
	data := map[string]any{
		"task_id":    taskID,
		"depends_on": dependsOn,
		"type":       typ.String(),
		"reason":     reason,
	}
	if len(path) > 0 {
		data["cycle"] = path
	}
	dm.logEvent(eventDependencyRejected, data)
}

func (dm *dependencyManager) logEvent(eventType string, data map[string]any) {
	if err := dm.events.LogEvent(eventType, data); err != nil {
		dm.log.Warn("recording event", "type", eventType, "error", err)
	}
}

// IsRejection reports whether err is one of the graph-level refusals
// AddDependency can return, as opposed to an I/O failure.
func IsRejection(err error) bool {
	return errors.Is(err, graph.ErrUnknownTask) || errors.Is(err, graph.ErrGraphCycleDetected)
}
