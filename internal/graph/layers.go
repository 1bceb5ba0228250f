package graph

import (
	"sort"

	"github.com/ShayCichocki/vibeman/pkg/models"
)

// TopologicalLayers returns the tasks grouped into dependency layers: every
// task in layer i has all its prerequisites in layers < i, so each layer is
// parallel-safe. Tasks on or behind a cycle are omitted; callers can
// discover them via CycleMembers. Layer membership considers all edge types;
// ordering within a layer is by task ID for determinism.
func (g *DependencyGraph) TopologicalLayers() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cyclic := g.cycleMembersLocked()

	indegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		if cyclic[id] {
			continue
		}
		n := 0
		for _, e := range g.deps[id] {
			if !cyclic[e.from] {
				n++
			}
		}
		indegree[id] = n
	}

	var current []string
	for id, d := range indegree {
		if d == 0 {
			current = append(current, id)
		}
	}

	var layers [][]string
	for len(current) > 0 {
		sort.Strings(current)
		layers = append(layers, current)

		var next []string
		for _, id := range current {
			for _, depID := range g.dependents[id] {
				if cyclic[depID] {
					continue
				}
				indegree[depID]--
				if indegree[depID] == 0 {
					next = append(next, depID)
				}
			}
		}
		current = next
	}
	return layers
}

// CriticalPath returns the task IDs on the longest weighted path from any
// root to any leaf, weighting each task by its estimated hours. Its length
// is a lower bound on total duration. Returns nil if the graph is empty or
// fully cyclic.
func (g *DependencyGraph) CriticalPath() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cyclic := g.cycleMembersLocked()

	// Longest path via DFS with memoization over the DAG portion.
	cost := make(map[string]float64, len(g.nodes))
	nextHop := make(map[string]string, len(g.nodes))
	visited := make(map[string]bool, len(g.nodes))

	taskHours := func(id string) float64 {
		h := g.nodes[id].EstimatedHours
		if h <= 0 {
			h = minTaskHours
		}
		return h
	}

	var visit func(id string) float64
	visit = func(id string) float64 {
		if visited[id] {
			return cost[id]
		}
		visited[id] = true

		best := 0.0
		for _, depID := range g.dependents[id] {
			if cyclic[depID] {
				continue
			}
			if c := visit(depID); c > best {
				best = c
				nextHop[id] = depID
			}
		}
		cost[id] = taskHours(id) + best
		return cost[id]
	}

	bestStart, bestCost := "", -1.0
	roots := make([]string, 0)
	for id := range g.nodes {
		if cyclic[id] {
			continue
		}
		roots = append(roots, id)
	}
	sort.Strings(roots)
	for _, id := range roots {
		if c := visit(id); c > bestCost {
			bestCost = c
			bestStart = id
		}
	}
	if bestStart == "" {
		return nil
	}

	var path []string
	for id := bestStart; id != ""; id = nextHop[id] {
		path = append(path, id)
		if _, ok := nextHop[id]; !ok {
			break
		}
	}
	return path
}

// minTaskHours is the synthetic minimum used so zero-estimate tasks keep
// their ordering without collapsing path lengths.
const minTaskHours = 0.01

// CriticalPathHours returns the total estimated hours along the critical path.
func (g *DependencyGraph) CriticalPathHours() float64 {
	path := g.CriticalPath()
	g.mu.RLock()
	defer g.mu.RUnlock()
	total := 0.0
	for _, id := range path {
		h := g.nodes[id].EstimatedHours
		if h <= 0 {
			h = minTaskHours
		}
		total += h
	}
	return total
}

// Tasks returns all tasks currently in the graph.
func (g *DependencyGraph) Tasks() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*models.Task, 0, len(g.nodes))
	for _, t := range g.nodes {
		out = append(out, t)
	}
	return out
}
