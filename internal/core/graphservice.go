package core

import (
	"errors"
	"fmt"

	"github.com/valter-silva-au/taskgraph/internal/graph"
	"github.com/valter-silva-au/taskgraph/internal/logging"
	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// GraphService answers graph queries against a fresh snapshot on every call.
// It keeps no graph state between calls.
type GraphService interface {
	ComputeLayout() (*graph.Layout, error)
	CanStart(taskID string) (bool, error)
	UnmetBlockers(taskID string) ([]string, error)
	CriticalPath() (graph.CriticalPath, error)
	Levels() (map[string]int, error)
	Ready() ([]models.Task, error)
	// Build returns the graph for the current snapshot, for callers that need
	// several answers from the same state.
	Build() (*graph.Graph, error)
}

// GraphServiceConfig carries the engine tuning taken from .tgconfig.
type GraphServiceConfig struct {
	Layout   graph.LayoutOptions
	MaxDepth int
	// Filtered marks a service built over a subset of the tasks. Its
	// successful recomputes say nothing about the full graph and are
	// recorded as such.
	Filtered bool
}

type graphService struct {
	src    SnapshotSource
	cfg    GraphServiceConfig
	log    *logging.Logger
	events EventLogger
}

// NewGraphService creates a GraphService over src. log and events may be nil.
func NewGraphService(src SnapshotSource, cfg GraphServiceConfig, log *logging.Logger, events EventLogger) GraphService {
	if log == nil {
		log = logging.NopLogger()
	}
	if cfg.Layout == (graph.LayoutOptions{}) {
		cfg.Layout = graph.DefaultLayoutOptions()
	}
	return &graphService{
		src:    src,
		cfg:    cfg,
		log:    log.WithComponent("graph"),
		events: eventLoggerOrNop(events),
	}
}

func (s *graphService) Build() (*graph.Graph, error) {
	tasks, edges, err := snapshot(s.src)
	if err != nil {
		return nil, fmt.Errorf("loading graph snapshot: %w", err)
	}
	return graph.Build(tasks, edges,
		graph.WithLayout(s.cfg.Layout),
		graph.WithMaxDepth(s.cfg.MaxDepth),
		graph.WithDroppedEdgeFunc(func(e models.DependencyEdge, reason string) {
			s.log.Warn("dropping dependency edge",
				"edge_id", e.ID, "task_id", e.TaskID, "depends_on", e.DependsOnTaskID, "reason", reason)
		}),
	), nil
}

// ComputeLayout runs the full pipeline. Each outcome is recorded in the event
// log, which is how a deadlock alert clears once the cycle is broken.
func (s *graphService) ComputeLayout() (*graph.Layout, error) {
	g, err := s.Build()
	if err != nil {
		return nil, err
	}
	layout, err := g.Layout()
	if err != nil {
		s.reportCycle(err)
		return nil, err
	}
	s.log.Debug("layout computed", "nodes", len(layout.Nodes), "edges", len(layout.Edges),
		"critical_length", layout.CriticalPath.Length)
	data := map[string]any{
		"nodes":           len(layout.Nodes),
		"edges":           len(layout.Edges),
		"critical_length": layout.CriticalPath.Length,
	}
	if s.cfg.Filtered {
		data["filtered"] = true
	}
	if logErr := s.events.LogEvent(eventGraphRecomputed, data); logErr != nil {
		s.log.Warn("recording recompute event", "error", logErr)
	}
	return layout, nil
}

func (s *graphService) CanStart(taskID string) (bool, error) {
	g, err := s.Build()
	if err != nil {
		return false, err
	}
	return g.CanStart(storage.NormalizeTaskID(taskID))
}

func (s *graphService) UnmetBlockers(taskID string) ([]string, error) {
	g, err := s.Build()
	if err != nil {
		return nil, err
	}
	return g.UnmetBlockers(storage.NormalizeTaskID(taskID))
}

func (s *graphService) CriticalPath() (graph.CriticalPath, error) {
	g, err := s.Build()
	if err != nil {
		return graph.CriticalPath{}, err
	}
	cp, err := g.CriticalPath()
	if err != nil {
		s.reportCycle(err)
		return graph.CriticalPath{}, err
	}
	return cp, nil
}

func (s *graphService) Levels() (map[string]int, error) {
	g, err := s.Build()
	if err != nil {
		return nil, err
	}
	level, err := g.Levels()
	if err != nil {
		s.reportCycle(err)
		return nil, err
	}
	return level, nil
}

// Ready returns the pending tasks whose blocking dependencies are all
// completed, in snapshot order.
func (s *graphService) Ready() ([]models.Task, error) {
	g, err := s.Build()
	if err != nil {
		return nil, err
	}
	ids := g.Ready()
	out := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.Tasks[id])
	}
	return out, nil
}

func (s *graphService) reportCycle(err error) {
	var cycle *graph.CycleError
	if !errors.As(err, &cycle) {
		return
	}
	s.log.Error("dependency cycle detected", "task_ids", cycle.TaskIDs)
	if logErr := s.events.LogEvent(eventGraphCycleDetected, map[string]any{
		"task_ids": cycle.TaskIDs,
	}); logErr != nil {
		s.log.Warn("recording cycle event", "error", logErr)
	}
}
