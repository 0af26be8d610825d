package graph

import "github.com/valter-silva-au/taskgraph/pkg/models"

// CanStart reports whether every blocking predecessor of taskID is completed.
// Informational edges are never consulted. A task without blocking
// predecessors can always start.
func (g *Graph) CanStart(taskID string) (bool, error) {
	if !g.HasTask(taskID) {
		return false, &UnknownTaskError{TaskID: taskID}
	}
	for _, dep := range g.BlockingPredecessors[taskID] {
		if g.Tasks[dep].Status != models.StatusCompleted {
			return false, nil
		}
	}
	return true, nil
}

// UnmetBlockers lists the blocking predecessors of taskID that are not yet
// completed, in edge order.
func (g *Graph) UnmetBlockers(taskID string) ([]string, error) {
	if !g.HasTask(taskID) {
		return nil, &UnknownTaskError{TaskID: taskID}
	}
	var unmet []string
	for _, dep := range g.BlockingPredecessors[taskID] {
		if g.Tasks[dep].Status != models.StatusCompleted {
			unmet = append(unmet, dep)
		}
	}
	return unmet, nil
}

// Ready returns the pending tasks that may start now, in discovery order.
func (g *Graph) Ready() []string {
	var ready []string
	for _, id := range g.Order {
		if g.Tasks[id].Status != models.StatusPending {
			continue
		}
		if ok, _ := g.CanStart(id); ok {
			ready = append(ready, id)
		}
	}
	return ready
}

// CanStart builds a graph from the snapshot and evaluates eligibility for
// taskID. Nothing is cached between calls.
func CanStart(taskID string, tasks []models.Task, edges []models.DependencyEdge) (bool, error) {
	return Build(tasks, edges).CanStart(taskID)
}
