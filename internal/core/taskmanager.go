package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valter-silva-au/taskgraph/internal/graph"
	"github.com/valter-silva-au/taskgraph/internal/logging"
	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// ErrStartBlocked is the sentinel behind StartBlockedError.
var ErrStartBlocked = errors.New("task cannot start")

// StartBlockedError is returned when a task is moved to in_progress while
// blocking dependencies are still incomplete and the guard is enforcing.
type StartBlockedError struct {
	TaskID   string
	Blockers []string
}

func (e *StartBlockedError) Error() string {
	return fmt.Sprintf("%s: %s is waiting on %s", ErrStartBlocked, e.TaskID, strings.Join(e.Blockers, ", "))
}

func (e *StartBlockedError) Unwrap() error { return ErrStartBlocked }

// TaskManager defines task lifecycle operations.
type TaskManager interface {
	CreateTask(task models.Task) (*models.Task, error)
	GetTask(taskID string) (*models.Task, error)
	GetAllTasks() ([]models.Task, error)
	GetTasksByStatus(status models.TaskStatus) ([]models.Task, error)
	// UpdateTaskStatus applies the start guard when moving to in_progress.
	UpdateTaskStatus(taskID string, status models.TaskStatus) error
	// ForceTaskStatus sets the status without consulting the start guard.
	ForceTaskStatus(taskID string, status models.TaskStatus) error
	UpdateTaskPriority(taskID string, priority models.Priority) error
	// RemoveTask deletes the task and every dependency edge touching it,
	// returning how many edges went with it.
	RemoveTask(taskID string) (int, error)
}

type taskManager struct {
	storeDir string
	tasks    TaskStore
	deps     DependencyStore
	guard    models.GuardMode
	log      *logging.Logger
	events   EventLogger
}

// NewTaskManager creates a TaskManager. An empty guard mode means enforce.
func NewTaskManager(storeDir string, tasks TaskStore, deps DependencyStore, guard models.GuardMode, log *logging.Logger, events EventLogger) TaskManager {
	if log == nil {
		log = logging.NopLogger()
	}
	if guard == "" {
		guard = models.GuardEnforce
	}
	return &taskManager{
		storeDir: storeDir,
		tasks:    tasks,
		deps:     deps,
		guard:    guard,
		log:      log.WithComponent("tasks"),
		events:   eventLoggerOrNop(events),
	}
}

func (tm *taskManager) CreateTask(task models.Task) (*models.Task, error) {
	unlock, err := lockStore(tm.storeDir)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	defer func() { _ = unlock() }()

	if err := tm.tasks.Load(); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	if err := tm.tasks.AddTask(task); err != nil {
		return nil, err
	}
	if err := tm.tasks.Save(); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	created, err := tm.tasks.GetTask(task.ID)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	tm.log.Info("task created", "task_id", created.ID, "priority", string(created.Priority))
	tm.logEvent(eventTaskCreated, map[string]any{
		"task_id":  created.ID,
		"title":    created.Title,
		"status":   string(created.Status),
		"priority": string(created.Priority),
	})
	return created, nil
}

func (tm *taskManager) GetTask(taskID string) (*models.Task, error) {
	if err := tm.tasks.Load(); err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}
	task, err := tm.tasks.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", &graph.UnknownTaskError{TaskID: taskID})
	}
	return task, nil
}

func (tm *taskManager) GetAllTasks() ([]models.Task, error) {
	if err := tm.tasks.Load(); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tm.tasks.GetAllTasks()
}

func (tm *taskManager) GetTasksByStatus(status models.TaskStatus) ([]models.Task, error) {
	all, err := tm.GetAllTasks()
	if err != nil {
		return nil, err
	}
	var out []models.Task
	for _, t := range all {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (tm *taskManager) UpdateTaskStatus(taskID string, status models.TaskStatus) error {
	return tm.setStatus(taskID, status, tm.guard)
}

func (tm *taskManager) ForceTaskStatus(taskID string, status models.TaskStatus) error {
	return tm.setStatus(taskID, status, models.GuardOff)
}

func (tm *taskManager) setStatus(taskID string, status models.TaskStatus, guard models.GuardMode) error {
	taskID = storage.NormalizeTaskID(taskID)
	if !status.IsValid() {
		return fmt.Errorf("updating task %s: invalid status %q", taskID, status)
	}

	unlock, err := lockStore(tm.storeDir)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", taskID, err)
	}
	defer func() { _ = unlock() }()

	if err := tm.tasks.Load(); err != nil {
		return fmt.Errorf("updating task %s: %w", taskID, err)
	}
	current, err := tm.tasks.GetTask(taskID)
	if err != nil {
		return fmt.Errorf("updating task: %w", &graph.UnknownTaskError{TaskID: taskID})
	}
	if current.Status == status {
		return nil
	}

	if status == models.StatusInProgress && guard != models.GuardOff {
		blockers, err := tm.unmetBlockers(taskID)
		if err != nil {
			return fmt.Errorf("updating task %s: %w", taskID, err)
		}
		if len(blockers) > 0 {
			if guard == models.GuardEnforce {
				tm.log.Warn("start refused", "task_id", taskID, "blockers", blockers)
				tm.logEvent(eventTaskStartBlocked, map[string]any{
					"task_id":  taskID,
					"blockers": blockers,
				})
				return &StartBlockedError{TaskID: taskID, Blockers: blockers}
			}
			tm.log.Warn("starting task with incomplete blockers", "task_id", taskID, "blockers", blockers)
		}
	}

	if err := tm.tasks.UpdateTask(taskID, models.Task{Status: status}); err != nil {
		return err
	}
	if err := tm.tasks.Save(); err != nil {
		return fmt.Errorf("updating task %s: %w", taskID, err)
	}

	tm.log.Info("task status changed", "task_id", taskID, "old_status", string(current.Status), "new_status", string(status))
	tm.logEvent(eventTaskStatusChanged, map[string]any{
		"task_id":    taskID,
		"old_status": string(current.Status),
		"new_status": string(status),
	})
	return nil
}

// unmetBlockers evaluates eligibility against the tasks already loaded under
// the store lock and freshly loaded edges.
func (tm *taskManager) unmetBlockers(taskID string) ([]string, error) {
	if err := tm.deps.Load(); err != nil {
		return nil, err
	}
	tasks, err := tm.tasks.GetAllTasks()
	if err != nil {
		return nil, err
	}
	edges, err := tm.deps.ListDependencies(taskID)
	if err != nil {
		return nil, err
	}
	return graph.Build(tasks, edges).UnmetBlockers(taskID)
}

func (tm *taskManager) UpdateTaskPriority(taskID string, priority models.Priority) error {
	if !priority.IsValid() {
		return fmt.Errorf("updating task %s: invalid priority %q", taskID, priority)
	}
	unlock, err := lockStore(tm.storeDir)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", taskID, err)
	}
	defer func() { _ = unlock() }()

	if err := tm.tasks.Load(); err != nil {
		return fmt.Errorf("updating task %s: %w", taskID, err)
	}
	if err := tm.tasks.UpdateTask(taskID, models.Task{Priority: priority}); err != nil {
		return err
	}
	if err := tm.tasks.Save(); err != nil {
		return fmt.Errorf("updating task %s: %w", taskID, err)
	}
	tm.log.Info("task priority changed", "task_id", taskID, "priority", string(priority))
	return nil
}

func (tm *taskManager) RemoveTask(taskID string) (int, error) {
	unlock, err := lockStore(tm.storeDir)
	if err != nil {
		return 0, fmt.Errorf("removing task %s: %w", taskID, err)
	}
	defer func() { _ = unlock() }()

	if err := tm.tasks.Load(); err != nil {
		return 0, fmt.Errorf("removing task %s: %w", taskID, err)
	}
	if err := tm.deps.Load(); err != nil {
		return 0, fmt.Errorf("removing task %s: %w", taskID, err)
	}
	if err := tm.tasks.RemoveTask(taskID); err != nil {
		return 0, err
	}
	removed, err := tm.deps.RemoveDependenciesFor(taskID)
	if err != nil {
		return 0, fmt.Errorf("removing task %s: %w", taskID, err)
	}
	if err := tm.tasks.Save(); err != nil {
		return 0, fmt.Errorf("removing task %s: %w", taskID, err)
	}
	if removed > 0 {
		if err := tm.deps.Save(); err != nil {
			return 0, fmt.Errorf("removing task %s: %w", taskID, err)
		}
	}

	tm.log.Info("task removed", "task_id", taskID, "edges_removed", removed)
	tm.logEvent(eventTaskRemoved, map[string]any{
		"task_id":       taskID,
		"edges_removed": removed,
	})
	return removed, nil
}

func (tm *taskManager) logEvent(eventType string, data map[string]any) {
	if err := tm.events.LogEvent(eventType, data); err != nil {
		tm.log.Warn("recording event", "type", eventType, "error", err)
	}
}
