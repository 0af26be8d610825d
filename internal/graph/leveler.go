package graph

import "sort"

// Levels assigns every task its longest-path distance from a source using
// Kahn's algorithm over all edge types. A task's level is one more than the
// maximum level of its predecessors, so level(dependent) > level(dependency)
// holds for every edge.
//
// If the traversal leaves tasks with residual in-degree, they sit on (or
// behind) a cycle and a *CycleError naming them is returned instead of a
// partial leveling.
func (g *Graph) Levels() (map[string]int, error) {
	inDegree := make(map[string]int, len(g.InDegree))
	for id, d := range g.InDegree {
		inDegree[id] = d
	}

	level := make(map[string]int, len(g.Tasks))
	queue := make([]string, 0, len(g.Tasks))
	for _, id := range g.Order {
		if inDegree[id] == 0 {
			level[id] = 0
			queue = append(queue, id)
		}
	}

	for head := 0; head < len(queue); head++ {
		t := queue[head]
		for _, s := range g.Successors[t] {
			if l := level[t] + 1; l > level[s] {
				level[s] = l
			}
			inDegree[s]--
			if inDegree[s] == 0 {
				queue = append(queue, s)
			}
		}
	}

	if len(queue) != len(g.Order) {
		var unresolved []string
		for _, id := range g.Order {
			if inDegree[id] > 0 {
				unresolved = append(unresolved, id)
			}
		}
		sort.Strings(unresolved)
		return nil, &CycleError{TaskIDs: unresolved}
	}

	return level, nil
}

// Layers groups task ids by level. Within a level tasks keep discovery order,
// which is the stable ordering the layout projector relies on.
func (g *Graph) Layers() ([][]string, error) {
	level, err := g.Levels()
	if err != nil {
		return nil, err
	}
	return groupByLevel(g.Order, level), nil
}

func groupByLevel(order []string, level map[string]int) [][]string {
	maxLevel := -1
	for _, l := range level {
		if l > maxLevel {
			maxLevel = l
		}
	}
	layers := make([][]string, maxLevel+1)
	for _, id := range order {
		l := level[id]
		layers[l] = append(layers[l], id)
	}
	return layers
}
