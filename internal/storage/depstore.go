package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/valter-silva-au/taskgraph/pkg/models"
	"gopkg.in/yaml.v3"
)

// DependenciesFileName is the name of the edge registry inside the store directory.
const DependenciesFileName = "dependencies.yaml"

var edgeIDPattern = regexp.MustCompile(`^DEP-(\d+)$`)

// DependencyFile represents the top-level structure of dependencies.yaml.
type DependencyFile struct {
	Version      string                  `yaml:"version"`
	Counter      int                     `yaml:"counter"`
	Dependencies []models.DependencyEdge `yaml:"dependencies"`
}

// DependencyStoreManager defines the interface for managing dependency edges.
type DependencyStoreManager interface {
	AddDependency(edge models.DependencyEdge) (models.DependencyEdge, error)
	RemoveDependency(edgeID string) error
	// ListDependencies returns every edge touching taskID, or all edges when
	// taskID is empty.
	ListDependencies(taskID string) ([]models.DependencyEdge, error)
	RemoveDependenciesFor(taskID string) (int, error)
	Load() error
	Save() error
}

type fileDependencyStore struct {
	basePath string
	now      func() time.Time

	mu   sync.RWMutex
	data DependencyFile
}

// NewDependencyStoreManager creates a DependencyStoreManager backed by a
// dependencies.yaml file in the given directory.
func NewDependencyStoreManager(basePath string) DependencyStoreManager {
	return &fileDependencyStore{
		basePath: basePath,
		now:      func() time.Time { return time.Now().UTC() },
		data:     DependencyFile{Version: "1.0"},
	}
}

func (s *fileDependencyStore) filePath() string {
	return filepath.Join(s.basePath, DependenciesFileName)
}

// AddDependency assigns the next DEP-xxxxx id and records the edge. Exact
// duplicates (same endpoints and type) are rejected. Endpoint existence and
// cycle checks belong to the caller.
func (s *fileDependencyStore) AddDependency(edge models.DependencyEdge) (models.DependencyEdge, error) {
	edge.TaskID = NormalizeTaskID(edge.TaskID)
	edge.DependsOnTaskID = NormalizeTaskID(edge.DependsOnTaskID)
	if edge.TaskID == "" || edge.DependsOnTaskID == "" {
		return models.DependencyEdge{}, fmt.Errorf("adding dependency: both task ids are required")
	}
	if !edge.Type.IsValid() {
		return models.DependencyEdge{}, fmt.Errorf("adding dependency: invalid dependency type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.data.Dependencies {
		if existing.TaskID == edge.TaskID && existing.DependsOnTaskID == edge.DependsOnTaskID && existing.Type == edge.Type {
			return models.DependencyEdge{}, fmt.Errorf("adding dependency: %s already depends on %s (%s) as %s",
				edge.TaskID, edge.DependsOnTaskID, edge.Type, existing.ID)
		}
	}

	s.data.Counter++
	edge.ID = fmt.Sprintf("DEP-%05d", s.data.Counter)
	if edge.Created.IsZero() {
		edge.Created = s.now()
	}
	s.data.Dependencies = append(s.data.Dependencies, edge)
	return edge, nil
}

func (s *fileDependencyStore) RemoveDependency(edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.data.Dependencies {
		if e.ID == edgeID {
			s.data.Dependencies = append(s.data.Dependencies[:i], s.data.Dependencies[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("removing dependency: edge %s not found", edgeID)
}

func (s *fileDependencyStore) ListDependencies(taskID string) ([]models.DependencyEdge, error) {
	taskID = NormalizeTaskID(taskID)

	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.DependencyEdge, 0, len(s.data.Dependencies))
	for _, e := range s.data.Dependencies {
		if taskID == "" || e.TaskID == taskID || e.DependsOnTaskID == taskID {
			result = append(result, e)
		}
	}
	return result, nil
}

// RemoveDependenciesFor deletes every edge touching taskID and returns how
// many were removed.
func (s *fileDependencyStore) RemoveDependenciesFor(taskID string) (int, error) {
	taskID = NormalizeTaskID(taskID)

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.data.Dependencies[:0]
	removed := 0
	for _, e := range s.data.Dependencies {
		if e.TaskID == taskID || e.DependsOnTaskID == taskID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.data.Dependencies = kept
	return removed, nil
}

func (s *fileDependencyStore) Load() error {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.data = DependencyFile{Version: "1.0"}
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("loading dependencies: %w", err)
	}

	var df DependencyFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return fmt.Errorf("loading dependencies: parsing YAML: %w", err)
	}
	// Keep the counter ahead of any hand-edited ids.
	for _, e := range df.Dependencies {
		if m := edgeIDPattern.FindStringSubmatch(e.ID); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > df.Counter {
				df.Counter = n
			}
		}
	}
	sort.SliceStable(df.Dependencies, func(i, j int) bool {
		return df.Dependencies[i].ID < df.Dependencies[j].ID
	})

	s.mu.Lock()
	s.data = df
	s.mu.Unlock()
	return nil
}

func (s *fileDependencyStore) Save() error {
	s.mu.RLock()
	data, err := yaml.Marshal(&s.data)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("saving dependencies: marshaling YAML: %w", err)
	}
	return writeFileAtomic(s.basePath, DependenciesFileName, data)
}
