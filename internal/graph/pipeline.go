package graph

import "github.com/valter-silva-au/taskgraph/pkg/models"

// Node is a positioned task in a computed layout.
type Node struct {
	TaskID string  `json:"task_id"`
	Level  int     `json:"level"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Edge is a rendered dependency. From is the dependency and To the
// dependent, matching the left-to-right flow of levels.
type Edge struct {
	From       string                `json:"from"`
	To         string                `json:"to"`
	Type       models.DependencyType `json:"type"`
	IsCritical bool                  `json:"is_critical"`
}

// Layout is everything the rendering layer needs for one snapshot.
type Layout struct {
	Nodes        []Node       `json:"nodes"`
	Edges        []Edge       `json:"edges"`
	CriticalPath CriticalPath `json:"critical_path"`
}

// Level returns the level of taskID, or -1 when it is not in the layout.
func (l *Layout) Level(taskID string) int {
	for _, n := range l.Nodes {
		if n.TaskID == taskID {
			return n.Level
		}
	}
	return -1
}

// ComputeLayout runs the whole pipeline on one snapshot: build, level,
// critical path, projection. A cycle aborts with *CycleError rather than
// producing a partial layout.
func ComputeLayout(tasks []models.Task, edges []models.DependencyEdge, opts ...Option) (*Layout, error) {
	return Build(tasks, edges, opts...).Layout()
}

// Layout computes the layout of an already built graph.
func (g *Graph) Layout() (*Layout, error) {
	level, err := g.Levels()
	if err != nil {
		return nil, err
	}
	critical, err := g.CriticalPath()
	if err != nil {
		return nil, err
	}

	points := Project(groupByLevel(g.Order, level), g.layout)

	out := &Layout{
		Nodes:        make([]Node, 0, len(g.Order)),
		Edges:        make([]Edge, 0, len(g.Edges)),
		CriticalPath: critical,
	}
	for _, id := range g.Order {
		p := points[id]
		out.Nodes = append(out.Nodes, Node{TaskID: id, Level: level[id], X: p.X, Y: p.Y})
	}

	criticalLinks := make(map[[2]string]bool, len(critical.TaskIDs))
	for i := 1; i < len(critical.TaskIDs); i++ {
		criticalLinks[[2]string{critical.TaskIDs[i-1], critical.TaskIDs[i]}] = true
	}
	for _, e := range g.Edges {
		out.Edges = append(out.Edges, Edge{
			From:       e.DependsOnTaskID,
			To:         e.TaskID,
			Type:       e.Type,
			IsCritical: e.Type.IsBlocking() && criticalLinks[[2]string{e.DependsOnTaskID, e.TaskID}],
		})
	}

	return out, nil
}
