// Package graph provides the in-memory dependency graph for task scheduling.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ShayCichocki/vibeman/pkg/models"
)

// ErrCycleDetected indicates an edge would create a circular dependency.
var ErrCycleDetected = errors.New("circular dependency detected")

// edge is a directed prerequisite link stored on the dependent task.
type edge struct {
	// from is the prerequisite task ID.
	from string
	// typ classifies the edge.
	typ models.DependencyType
	// weight is the edge weight for critical-path computation.
	weight int
	// hard marks the edge as a scheduling constraint.
	hard bool
}

// DependencyGraph is a directed acyclic graph of task dependencies.
// Tasks are nodes; an edge from A to B means B depends on A.
// The graph is acyclic at every observable moment: AddDependency rejects
// edges that would close a cycle.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// deps maps a task ID to the edges pointing at its prerequisites.
	deps map[string][]edge
	// dependents maps a task ID to the IDs of tasks that depend on it.
	dependents map[string][]string
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:      make(map[string]*models.Task),
		deps:       make(map[string][]edge),
		dependents: make(map[string][]string),
		debugLog:   func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// AddTask registers a task as a node. Re-adding an existing ID replaces the
// stored task but keeps its edges.
func (g *DependencyGraph) AddTask(task *models.Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("task must have an id")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.nodes[task.ID]; !exists {
		g.deps[task.ID] = nil
	}
	g.nodes[task.ID] = task
	return nil
}

// AddDependency adds a directed edge: to depends on from. It fails with
// ErrCycleDetected if the edge would create a cycle, leaving the graph
// unchanged.
func (g *DependencyGraph) AddDependency(from, to string, typ models.DependencyType, weight int, hard bool) error {
	if weight < 1 {
		weight = 1
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("unknown task %s", from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("unknown task %s", to)
	}
	if from == to {
		return ErrCycleDetected
	}

	// Duplicate edges are idempotent.
	for _, e := range g.deps[to] {
		if e.from == from {
			return nil
		}
	}

	g.deps[to] = append(g.deps[to], edge{from: from, typ: typ, weight: weight, hard: hard})
	if g.hasCycleLocked() {
		// Roll back the insertion.
		g.deps[to] = g.deps[to][:len(g.deps[to])-1]
		g.debugLog("[graph] rejected edge %s -> %s: would create cycle", from, to)
		return ErrCycleDetected
	}
	g.dependents[from] = append(g.dependents[from], to)
	return nil
}

// Build constructs the graph from tasks and edges in one pass. All tasks are
// registered first, edges are inserted unchecked, then a single cycle check
// validates the whole graph. This keeps bulk construction linear in edges;
// incremental AddDependency checks per edge instead.
func (g *DependencyGraph) Build(tasks []*models.Task, deps []*models.Dependency) error {
	for _, task := range tasks {
		if err := g.AddTask(task); err != nil {
			return err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	insert := func(from, to string, typ models.DependencyType, weight int, hard bool) error {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("task %s depends on unknown task %s", to, from)
		}
		if _, ok := g.nodes[to]; !ok {
			return fmt.Errorf("unknown task %s", to)
		}
		for _, e := range g.deps[to] {
			if e.from == from {
				return nil
			}
		}
		if weight < 1 {
			weight = 1
		}
		g.deps[to] = append(g.deps[to], edge{from: from, typ: typ, weight: weight, hard: hard})
		g.dependents[from] = append(g.dependents[from], to)
		return nil
	}

	for _, d := range deps {
		if err := insert(d.From, d.To, d.Type, d.Weight, d.Hard); err != nil {
			return err
		}
	}
	// Task-embedded dependency lists are treated as hard blocking edges.
	for _, task := range tasks {
		for _, depID := range task.Dependencies {
			if err := insert(depID, task.ID, models.DependencyBlocks, 1, true); err != nil {
				return err
			}
		}
	}

	if g.hasCycleLocked() {
		return ErrCycleDetected
	}
	g.debugLog("[graph] built graph with %d tasks", len(g.nodes))
	return nil
}

// HasCycle returns true if the graph contains a circular dependency.
// Uses depth-first search with coloring to detect back edges.
func (g *DependencyGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasCycleLocked()
}

// hasCycleLocked is the internal implementation that assumes the lock is held.
func (g *DependencyGraph) hasCycleLocked() bool {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		for _, e := range g.deps[id] {
			switch colors[e.from] {
			case 1:
				return true
			case 0:
				if visit(e.from) {
					return true
				}
			}
		}
		colors[id] = 2
		return false
	}

	for id := range g.nodes {
		if colors[id] == 0 {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// cycleMembersLocked returns the IDs of tasks that sit on or behind a cycle,
// i.e. tasks that can never be layered. Caller must hold the lock.
func (g *DependencyGraph) cycleMembersLocked() map[string]bool {
	// Kahn-style peeling: anything not removable by repeatedly dropping
	// zero-indegree nodes is on or behind a cycle.
	indegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = len(g.deps[id])
	}

	queue := make([]string, 0, len(g.nodes))
	for id, d := range indegree {
		if d == 0 {
			queue = append(queue, id)
		}
	}

	removed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		removed++
		for _, depID := range g.dependents[id] {
			indegree[depID]--
			if indegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	members := make(map[string]bool)
	if removed == len(g.nodes) {
		return members
	}
	for id, d := range indegree {
		if d > 0 {
			members[id] = true
		}
	}
	return members
}

// CycleMembers returns the IDs of tasks on or downstream of a cycle.
func (g *DependencyGraph) CycleMembers() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	members := g.cycleMembersLocked()
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// ReadyTasks returns tasks whose hard prerequisites are all in completed
// and which are themselves still pending.
func (g *DependencyGraph) ReadyTasks(completed map[string]bool) []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []*models.Task
	for id, task := range g.nodes {
		if completed[id] {
			continue
		}
		if task.Status != models.TaskStatusPending {
			continue
		}
		ok := true
		for _, e := range g.deps[id] {
			if e.hard && !completed[e.from] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, task)
		}
	}
	return ready
}

// GetTask returns the task for a given ID, or nil if not found.
func (g *DependencyGraph) GetTask(taskID string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the prerequisite task IDs of the given task.
func (g *DependencyGraph) Dependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.deps[taskID]))
	for _, e := range g.deps[taskID] {
		ids = append(ids, e.from)
	}
	return ids
}

// HardDependencies returns only the hard prerequisite task IDs.
func (g *DependencyGraph) HardDependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var ids []string
	for _, e := range g.deps[taskID] {
		if e.hard {
			ids = append(ids, e.from)
		}
	}
	return ids
}

// Dependents returns the IDs of tasks that depend on the given task.
func (g *DependencyGraph) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.dependents[taskID]))
	copy(out, g.dependents[taskID])
	return out
}

// TransitiveDependents returns how many tasks transitively depend on the
// given task. Used by the scheduler's dependency score.
func (g *DependencyGraph) TransitiveDependents(taskID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	stack := append([]string(nil), g.dependents[taskID]...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, g.dependents[id]...)
	}
	return len(seen)
}
