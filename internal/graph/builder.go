package graph

import (
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// DefaultMaxDepth bounds the critical path search when no option overrides it.
const DefaultMaxDepth = 10000

// Reasons passed to a DroppedEdgeFunc.
const (
	DropMissingTask    = "missing_task"
	DropMissingDepends = "missing_dependency"
	DropInvalidType    = "invalid_type"
)

// DroppedEdgeFunc is called for every edge the builder excludes.
type DroppedEdgeFunc func(edge models.DependencyEdge, reason string)

// Option configures Build.
type Option func(*Graph)

// WithDroppedEdgeFunc registers a callback for edges excluded during building.
func WithDroppedEdgeFunc(fn DroppedEdgeFunc) Option {
	return func(g *Graph) { g.onDrop = fn }
}

// WithMaxDepth bounds the critical path search. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxDepth = n
		}
	}
}

// WithLayout sets the spacing used by Layout.
func WithLayout(opts LayoutOptions) Option {
	return func(g *Graph) { g.layout = opts }
}

// Graph is the adjacency structure built from one snapshot. Edges run from
// dependency to dependent, the reverse of how DependencyEdge records them.
type Graph struct {
	Tasks map[string]models.Task
	// Order is the task discovery order (first appearance in the input).
	Order []string
	// Edges holds the retained edges after dropping and de-duplication.
	Edges []models.DependencyEdge

	// Successors and InDegree cover every edge type and drive levelling.
	Successors map[string][]string
	InDegree   map[string]int

	// BlockingSuccessors and BlockingPredecessors cover blocking edges only.
	BlockingSuccessors   map[string][]string
	BlockingPredecessors map[string][]string

	onDrop   DroppedEdgeFunc
	maxDepth int
	layout   LayoutOptions
}

type edgeKey struct {
	from, to string
	typ      models.DependencyType
}

// Build constructs a Graph from flat task and edge lists. Edges whose
// endpoints are absent from tasks are silently excluded (reported through
// WithDroppedEdgeFunc when set); duplicate edges collapse into one.
func Build(tasks []models.Task, edges []models.DependencyEdge, opts ...Option) *Graph {
	g := &Graph{
		Tasks:                make(map[string]models.Task, len(tasks)),
		Order:                make([]string, 0, len(tasks)),
		Successors:           make(map[string][]string),
		InDegree:             make(map[string]int, len(tasks)),
		BlockingSuccessors:   make(map[string][]string),
		BlockingPredecessors: make(map[string][]string),
		maxDepth:             DefaultMaxDepth,
		layout:               DefaultLayoutOptions(),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, t := range tasks {
		if _, seen := g.Tasks[t.ID]; !seen {
			g.Order = append(g.Order, t.ID)
			g.InDegree[t.ID] = 0
		}
		g.Tasks[t.ID] = t
	}

	seen := make(map[edgeKey]struct{}, len(edges))
	for _, e := range edges {
		if _, ok := g.Tasks[e.TaskID]; !ok {
			g.drop(e, DropMissingTask)
			continue
		}
		if _, ok := g.Tasks[e.DependsOnTaskID]; !ok {
			g.drop(e, DropMissingDepends)
			continue
		}
		if !e.Type.IsValid() {
			g.drop(e, DropInvalidType)
			continue
		}

		key := edgeKey{from: e.DependsOnTaskID, to: e.TaskID, typ: e.Type}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		g.Edges = append(g.Edges, e)
		g.Successors[key.from] = append(g.Successors[key.from], key.to)
		g.InDegree[key.to]++

		switch e.Type {
		case models.DependencyBlocking:
			g.BlockingSuccessors[key.from] = append(g.BlockingSuccessors[key.from], key.to)
			g.BlockingPredecessors[key.to] = append(g.BlockingPredecessors[key.to], key.from)
		case models.DependencyInformational:
			// Advisory only: contributes to levels, never to blocking.
		}
	}

	return g
}

func (g *Graph) drop(e models.DependencyEdge, reason string) {
	if g.onDrop != nil {
		g.onDrop(e, reason)
	}
}

// HasTask reports whether id is part of the snapshot.
func (g *Graph) HasTask(id string) bool {
	_, ok := g.Tasks[id]
	return ok
}

// TaskCount returns the number of tasks in the graph.
func (g *Graph) TaskCount() int {
	return len(g.Tasks)
}

func (g *Graph) hasBlockingEdges() bool {
	for _, succ := range g.BlockingSuccessors {
		if len(succ) > 0 {
			return true
		}
	}
	return false
}
