package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/valter-silva-au/taskgraph/pkg/models"
	"gopkg.in/yaml.v3"
)

// TasksFileName is the name of the task registry inside the store directory.
const TasksFileName = "tasks.yaml"

// NormalizeTaskID trims whitespace and trailing slashes so that ids typed on
// the command line match stored ids.
func NormalizeTaskID(taskID string) string {
	return strings.TrimRight(strings.TrimSpace(taskID), "/")
}

// TaskFilter specifies criteria for filtering tasks.
// All specified fields use AND logic: a task must match every criterion.
type TaskFilter struct {
	Status   []models.TaskStatus
	Priority []models.Priority
}

// TaskFile represents the top-level structure of tasks.yaml.
type TaskFile struct {
	Version string                 `yaml:"version"`
	Tasks   map[string]models.Task `yaml:"tasks"`
}

// TaskStoreManager defines the interface for managing the task registry.
type TaskStoreManager interface {
	AddTask(task models.Task) error
	UpdateTask(taskID string, updates models.Task) error
	RemoveTask(taskID string) error
	GetTask(taskID string) (*models.Task, error)
	GetAllTasks() ([]models.Task, error)
	FilterTasks(filter TaskFilter) ([]models.Task, error)
	Load() error
	Save() error
}

type fileTaskStore struct {
	basePath string
	now      func() time.Time

	mu   sync.RWMutex
	data TaskFile
}

// NewTaskStoreManager creates a new TaskStoreManager backed by a tasks.yaml
// file in the given directory.
func NewTaskStoreManager(basePath string) TaskStoreManager {
	return &fileTaskStore{
		basePath: basePath,
		now:      func() time.Time { return time.Now().UTC() },
		data: TaskFile{
			Version: "1.0",
			Tasks:   make(map[string]models.Task),
		},
	}
}

func (s *fileTaskStore) filePath() string {
	return filepath.Join(s.basePath, TasksFileName)
}

func (s *fileTaskStore) AddTask(task models.Task) error {
	task.ID = NormalizeTaskID(task.ID)
	if task.ID == "" {
		return fmt.Errorf("adding task: ID must not be empty")
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if !task.Status.IsValid() {
		return fmt.Errorf("adding task %s: invalid status %q", task.ID, task.Status)
	}
	if !task.Priority.IsValid() {
		return fmt.Errorf("adding task %s: invalid priority %q", task.ID, task.Priority)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data.Tasks[task.ID]; exists {
		return fmt.Errorf("adding task: task %s already exists", task.ID)
	}
	now := s.now()
	if task.Created.IsZero() {
		task.Created = now
	}
	task.Updated = now
	s.data.Tasks[task.ID] = task
	return nil
}

// UpdateTask merges the non-zero fields of updates into the stored task.
func (s *fileTaskStore) UpdateTask(taskID string, updates models.Task) error {
	taskID = NormalizeTaskID(taskID)

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.data.Tasks[taskID]
	if !exists {
		return fmt.Errorf("updating task: task %s not found", taskID)
	}

	if updates.Title != "" {
		existing.Title = updates.Title
	}
	if updates.Status != "" {
		if !updates.Status.IsValid() {
			return fmt.Errorf("updating task %s: invalid status %q", taskID, updates.Status)
		}
		existing.Status = updates.Status
	}
	if updates.Priority != "" {
		if !updates.Priority.IsValid() {
			return fmt.Errorf("updating task %s: invalid priority %q", taskID, updates.Priority)
		}
		existing.Priority = updates.Priority
	}
	existing.Updated = s.now()

	s.data.Tasks[taskID] = existing
	return nil
}

func (s *fileTaskStore) RemoveTask(taskID string) error {
	taskID = NormalizeTaskID(taskID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data.Tasks[taskID]; !exists {
		return fmt.Errorf("removing task: task %s not found", taskID)
	}
	delete(s.data.Tasks, taskID)
	return nil
}

func (s *fileTaskStore) GetTask(taskID string) (*models.Task, error) {
	taskID = NormalizeTaskID(taskID)

	s.mu.RLock()
	defer s.mu.RUnlock()
	task, exists := s.data.Tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	return &task, nil
}

// GetAllTasks returns every task sorted by ID.
func (s *fileTaskStore) GetAllTasks() ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]models.Task, 0, len(s.data.Tasks))
	for _, task := range s.data.Tasks {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

func (s *fileTaskStore) FilterTasks(filter TaskFilter) ([]models.Task, error) {
	all, err := s.GetAllTasks()
	if err != nil {
		return nil, err
	}

	var result []models.Task
	for _, task := range all {
		if matchesTaskFilter(task, filter) {
			result = append(result, task)
		}
	}
	return result, nil
}

func matchesTaskFilter(task models.Task, filter TaskFilter) bool {
	if len(filter.Status) > 0 && !containsStatus(filter.Status, task.Status) {
		return false
	}
	if len(filter.Priority) > 0 && !containsPriority(filter.Priority, task.Priority) {
		return false
	}
	return true
}

func containsStatus(haystack []models.TaskStatus, needle models.TaskStatus) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsPriority(haystack []models.Priority, needle models.Priority) bool {
	for _, p := range haystack {
		if p == needle {
			return true
		}
	}
	return false
}

func (s *fileTaskStore) Load() error {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.data = TaskFile{
				Version: "1.0",
				Tasks:   make(map[string]models.Task),
			}
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("loading tasks: %w", err)
	}

	var tf TaskFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("loading tasks: parsing YAML: %w", err)
	}
	if tf.Tasks == nil {
		tf.Tasks = make(map[string]models.Task)
	}
	// The map key is authoritative; entries written by hand may omit id.
	for id, task := range tf.Tasks {
		task.ID = id
		tf.Tasks[id] = task
	}

	s.mu.Lock()
	s.data = tf
	s.mu.Unlock()
	return nil
}

func (s *fileTaskStore) Save() error {
	s.mu.RLock()
	data, err := yaml.Marshal(&s.data)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("saving tasks: marshaling YAML: %w", err)
	}
	return writeFileAtomic(s.basePath, TasksFileName, data)
}

// writeFileAtomic writes data to a temp file in dir and renames it over name,
// so readers such as the change watcher never observe a half-written file.
func writeFileAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("saving %s: creating directory: %w", name, err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("saving %s: creating temp file: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("saving %s: writing file: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("saving %s: closing file: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("saving %s: renaming file: %w", name, err)
	}
	return nil
}
