// Package dag generalizes plan.ExecutionGraph/ExecutionFragment from a
// fixed, fully-built host/step graph into a step-instance dependency graph
// to which nodes and edges may be added at any time. pkg/engine builds the
// complete graph before execution starts.
package dag

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sosflow/sosflow/pkg/wferrors"
)

// NodeID identifies one step instance (a single substep group dispatch) in
// the graph.
type NodeID string

// EdgeKind tags why one node depends on another, mirroring spec.md §4.5's
// distinction between an ordinary data dependency and a completion-only
// (step_completion / sos_step) dependency.
type EdgeKind int

const (
	// EdgeTarget: the dependency produces a target this node consumes.
	EdgeTarget EdgeKind = iota
	// EdgeCompletion: the dependency must merely finish (StepCompletion),
	// its outputs are not consumed.
	EdgeCompletion
)

func (k EdgeKind) String() string {
	if k == EdgeCompletion {
		return "completion"
	}
	return "target"
}

// Node is one step-instance vertex. Dependencies records the edges pointing
// into this node (producers it waits on), each tagged with its kind.
type Node struct {
	ID           NodeID
	StepName     string
	GroupIndex   int
	Dependencies []Dependency
}

// Dependency is one incoming edge.
type Dependency struct {
	On   NodeID
	Kind EdgeKind
}

// Graph is a mutable, incrementally-growable DAG of step instances. All
// mutation methods are safe for concurrent use.
type Graph struct {
	mu    sync.Mutex
	nodes map[NodeID]*Node
	// dependents indexes the reverse edges: dependents[x] are the nodes
	// that depend on x, kept in sync with Dependencies for O(1) cascade
	// walks (grounded on engine.dagExecutor's in-degree/dependents maps).
	dependents map[NodeID][]NodeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:      make(map[NodeID]*Node),
		dependents: make(map[NodeID][]NodeID),
	}
}

// AddNode inserts a new node with no dependencies. Returns an error if the
// ID is already present.
func (g *Graph) AddNode(id NodeID, stepName string, groupIndex int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("dag: node %q already exists", id)
	}
	g.nodes[id] = &Node{ID: id, StepName: stepName, GroupIndex: groupIndex}
	return nil
}

// Has reports whether id is already in the graph.
func (g *Graph) Has(id NodeID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.nodes[id]
	return ok
}

// AddDependency links to -> depends on -> from (from must complete, or
// produce to's input, before to may run). Idempotent: re-adding an
// existing (from, to) edge of the same kind is a no-op. Both nodes must
// already exist.
func (g *Graph) AddDependency(from, to NodeID, kind EdgeKind) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if from == to {
		return fmt.Errorf("dag: self-dependency on %q", from)
	}
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("dag: dependency source %q not found", from)
	}
	to_, ok := g.nodes[to]
	if !ok {
		return fmt.Errorf("dag: dependency target %q not found", to)
	}
	for _, d := range to_.Dependencies {
		if d.On == from && d.Kind == kind {
			return nil
		}
	}
	to_.Dependencies = append(to_.Dependencies, Dependency{On: from, Kind: kind})
	g.dependents[from] = append(g.dependents[from], to)
	return nil
}

// Node returns a snapshot copy of the named node, or nil if absent.
func (g *Graph) Node(id NodeID) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	cp := *n
	cp.Dependencies = append([]Dependency(nil), n.Dependencies...)
	return &cp
}

// Dependents returns the nodes that depend on id, sorted for determinism.
func (g *Graph) Dependents(id NodeID) []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := append([]NodeID(nil), g.dependents[id]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NodeIDs returns every node ID currently in the graph, sorted.
func (g *Graph) NodeIDs() []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the current node count.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Roots returns the nodes with no dependencies (immediately runnable),
// sorted for determinism.
func (g *Graph) Roots() []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []NodeID
	for id, n := range g.nodes {
		if len(n.Dependencies) == 0 {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate runs Kahn's algorithm over the current node set and reports a
// CyclicDependency-shaped error (spec.md §4.5, grounded on
// plan.ExecutionGraph.Validate) if a cycle exists. Safe to call mid-run on
// a partially-built graph: it only ever proves the presence of a cycle,
// never the absence of future ones introduced by incremental insertion.
func (g *Graph) Validate() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	inDegree := make(map[NodeID]int, len(g.nodes))
	adj := make(map[NodeID][]NodeID, len(g.nodes))
	for id, n := range g.nodes {
		inDegree[id] = len(n.Dependencies)
		for _, d := range n.Dependencies {
			adj[d.On] = append(adj[d.On], id)
		}
	}

	queue := make([]NodeID, 0)
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })

	count := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		count++
		for _, v := range adj[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	if count != len(g.nodes) {
		return findCycle(g.nodes)
	}
	return nil
}

// findCycle does a DFS to report one concrete cycle path for diagnostics.
func findCycle(nodes map[NodeID]*Node) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[NodeID]int, len(nodes))
	var path []NodeID

	var visit func(id NodeID) []NodeID
	visit = func(id NodeID) []NodeID {
		color[id] = gray
		path = append(path, id)
		if n, ok := nodes[id]; ok {
			for _, d := range n.Dependencies {
				switch color[d.On] {
				case white:
					if cyc := visit(d.On); cyc != nil {
						return cyc
					}
				case gray:
					cycleStart := 0
					for i, p := range path {
						if p == d.On {
							cycleStart = i
							break
						}
					}
					cyc := append([]NodeID(nil), path[cycleStart:]...)
					return append(cyc, d.On)
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	ids := make([]NodeID, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if color[id] == white {
			if cyc := visit(id); cyc != nil {
				strs := make([]string, len(cyc))
				for i, c := range cyc {
					strs[i] = string(c)
				}
				return wferrors.CyclicDependency(strs)
			}
		}
	}
	return fmt.Errorf("dag: cyclic dependency detected (could not isolate path)")
}
