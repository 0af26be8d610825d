package graph

import (
	"fmt"
	"sort"
)

// CriticalPath is the longest chain of blocking dependencies, ordered from
// the first dependency to the last dependent.
type CriticalPath struct {
	TaskIDs []string `json:"task_ids"`
	Length  int      `json:"length"`
}

// Contains reports whether id lies on the path.
func (p CriticalPath) Contains(id string) bool {
	for _, t := range p.TaskIDs {
		if t == id {
			return true
		}
	}
	return false
}

// CriticalPath finds the longest chain (by node count) over blocking edges
// only. Roots are the tasks with no blocking predecessors, which can differ
// from level-0 tasks of the combined graph.
//
// The blocking subgraph must be acyclic; a cycle is returned as *CycleError
// before any search runs. A snapshot without blocking edges has an empty
// critical path. When several paths share the maximum length any one of them
// may be returned.
func (g *Graph) CriticalPath() (CriticalPath, error) {
	if cycle := g.blockingCycle(); cycle != nil {
		return CriticalPath{}, &CycleError{TaskIDs: cycle}
	}
	if !g.hasBlockingEdges() {
		return CriticalPath{}, nil
	}

	var best []string
	for _, root := range g.Order {
		if len(g.BlockingPredecessors[root]) > 0 {
			continue
		}
		longest, err := g.longestFrom(root)
		if err != nil {
			return CriticalPath{}, err
		}
		if len(longest) > len(best) {
			best = longest
		}
	}

	return CriticalPath{TaskIDs: best, Length: len(best)}, nil
}

type dfsFrame struct {
	id   string
	next int
}

// longestFrom runs a backtracking depth-first search from root with an
// explicit stack. The visited set is scoped to the current path so shared
// sub-paths are explored once per parent.
func (g *Graph) longestFrom(root string) ([]string, error) {
	path := []string{root}
	onPath := map[string]bool{root: true}
	best := append([]string(nil), path...)
	stack := []dfsFrame{{id: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succ := g.BlockingSuccessors[top.id]
		if top.next >= len(succ) {
			delete(onPath, top.id)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
			continue
		}

		next := succ[top.next]
		top.next++
		if onPath[next] {
			continue
		}
		if len(path) >= g.maxDepth {
			return nil, fmt.Errorf("%w (%d) from %s", ErrDepthExceeded, g.maxDepth, root)
		}

		stack = append(stack, dfsFrame{id: next})
		path = append(path, next)
		onPath[next] = true
		if len(path) > len(best) {
			best = append(best[:0], path...)
		}
	}

	return best, nil
}

// blockingCycle runs Kahn's algorithm over blocking edges only and returns
// the sorted ids it could not resolve, or nil when the subgraph is acyclic.
func (g *Graph) blockingCycle() []string {
	inDegree := make(map[string]int, len(g.Tasks))
	for _, id := range g.Order {
		inDegree[id] = len(g.BlockingPredecessors[id])
	}

	queue := make([]string, 0, len(g.Order))
	for _, id := range g.Order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	for head := 0; head < len(queue); head++ {
		for _, s := range g.BlockingSuccessors[queue[head]] {
			inDegree[s]--
			if inDegree[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
	if len(queue) == len(g.Order) {
		return nil
	}

	var unresolved []string
	for _, id := range g.Order {
		if inDegree[id] > 0 {
			unresolved = append(unresolved, id)
		}
	}
	sort.Strings(unresolved)
	return unresolved
}
