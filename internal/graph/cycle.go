package graph

import "github.com/valter-silva-au/taskgraph/pkg/models"

// WouldCreateCycle reports whether recording that taskID depends on
// dependsOn would close a cycle. It returns the closing path, starting at
// taskID and ending at dependsOn, along which dependsOn is already reachable.
//
// Every edge type is followed: an informational cycle does not deadlock
// eligibility, but it still makes levelling impossible.
func (g *Graph) WouldCreateCycle(taskID, dependsOn string) (bool, []string) {
	if taskID == dependsOn {
		return true, []string{taskID}
	}
	path := g.pathBetween(taskID, dependsOn, g.Successors)
	return path != nil, path
}

// pathBetween returns a shortest path from -> to over adj, or nil.
func (g *Graph) pathBetween(from, to string, adj map[string][]string) []string {
	parent := map[string]string{from: ""}
	queue := []string{from}
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if cur == to {
			var path []string
			for n := to; n != ""; n = parent[n] {
				path = append(path, n)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}
		for _, next := range adj[cur] {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = cur
			queue = append(queue, next)
		}
	}
	return nil
}

// WouldCreateCycle is the snapshot-level form used before inserting an edge.
func WouldCreateCycle(tasks []models.Task, edges []models.DependencyEdge, taskID, dependsOn string) (bool, []string) {
	return Build(tasks, edges).WouldCreateCycle(taskID, dependsOn)
}
