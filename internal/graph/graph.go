// Package graph holds the static dependency graph of a registry. Nodes are
// definitions; an edge from A to B means A's constructor activates B.
package graph

import (
	"slices"
)

// Edge is one declared dependency of a node.
type Edge[K comparable] struct {
	To       K
	Label    string
	Optional bool
}

// Node represents a definition in the dependency graph
type Node[K comparable] struct {
	Key   K
	Label string

	// Defined is false for nodes only referenced as a dependency.
	Defined bool

	Dependencies []Edge[K] // nodes this node depends on
	Dependents   []K       // nodes that depend on this node

	// Depth is the longest dependency chain below the node, -1 when the node
	// sits on a cycle. Set by CalculateDepths.
	Depth int
}

// Graph is a directed dependency graph. Iteration follows insertion order so
// every rendering and error is deterministic. It is not safe for concurrent
// mutation; build it once and read it afterwards.
type Graph[K comparable] struct {
	nodes map[K]*Node[K]
	order []K
}

// New creates an empty graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{nodes: make(map[K]*Node[K])}
}

// Add defines key with its dependencies. Dependencies not yet defined are
// added as placeholder nodes. Adding a key twice replaces its edges.
func (g *Graph[K]) Add(key K, label string, deps ...Edge[K]) {
	node := g.node(key, label)
	node.Label = label
	node.Defined = true

	for _, old := range node.Dependencies {
		if dep, ok := g.nodes[old.To]; ok {
			dep.Dependents = slices.DeleteFunc(dep.Dependents, func(k K) bool { return k == key })
		}
	}

	node.Dependencies = slices.Clone(deps)
	for _, e := range deps {
		dep := g.node(e.To, e.Label)
		if !slices.Contains(dep.Dependents, key) {
			dep.Dependents = append(dep.Dependents, key)
		}
	}
}

func (g *Graph[K]) node(key K, label string) *Node[K] {
	if n, ok := g.nodes[key]; ok {
		return n
	}

	n := &Node[K]{Key: key, Label: label}
	g.nodes[key] = n
	g.order = append(g.order, key)
	return n
}

// Node returns the node for key, or nil.
func (g *Graph[K]) Node(key K) *Node[K] {
	return g.nodes[key]
}

// Has reports whether key is defined.
func (g *Graph[K]) Has(key K) bool {
	n, ok := g.nodes[key]
	return ok && n.Defined
}

// Size returns the number of defined nodes.
func (g *Graph[K]) Size() int {
	n := 0
	for _, node := range g.nodes {
		if node.Defined {
			n++
		}
	}
	return n
}

// Nodes returns every node, placeholders included, in insertion order.
func (g *Graph[K]) Nodes() []*Node[K] {
	nodes := make([]*Node[K], len(g.order))
	for i, k := range g.order {
		nodes[i] = g.nodes[k]
	}
	return nodes
}

// Dependencies returns the direct dependencies of key.
func (g *Graph[K]) Dependencies(key K) []K {
	node, ok := g.nodes[key]
	if !ok {
		return nil
	}

	deps := make([]K, len(node.Dependencies))
	for i, e := range node.Dependencies {
		deps[i] = e.To
	}
	return deps
}

// Dependents returns the nodes that depend directly on key.
func (g *Graph[K]) Dependents(key K) []K {
	node, ok := g.nodes[key]
	if !ok {
		return nil
	}
	return slices.Clone(node.Dependents)
}

// TransitiveDependencies returns every node reachable from key, in
// depth-first order.
func (g *Graph[K]) TransitiveDependencies(key K) []K {
	visited := map[K]bool{key: true}
	var result []K

	var visit func(K)
	visit = func(k K) {
		for _, dep := range g.Dependencies(k) {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			result = append(result, dep)
			visit(dep)
		}
	}
	visit(key)

	return result
}

// Missing returns, for every defined node, the required dependencies that
// are not defined.
func (g *Graph[K]) Missing() []MissingEdge[K] {
	var missing []MissingEdge[K]
	for _, k := range g.order {
		node := g.nodes[k]
		if !node.Defined {
			continue
		}

		for _, e := range node.Dependencies {
			if e.Optional || g.Has(e.To) {
				continue
			}
			missing = append(missing, MissingEdge[K]{From: k, To: e.To})
		}
	}
	return missing
}

// MissingEdge is a required dependency with no definition.
type MissingEdge[K comparable] struct {
	From K
	To   K
}

// Roots returns defined nodes nothing depends on.
func (g *Graph[K]) Roots() []*Node[K] {
	var roots []*Node[K]
	for _, k := range g.order {
		if node := g.nodes[k]; node.Defined && len(node.Dependents) == 0 {
			roots = append(roots, node)
		}
	}
	return roots
}

// Leaves returns defined nodes without dependencies.
func (g *Graph[K]) Leaves() []*Node[K] {
	var leaves []*Node[K]
	for _, k := range g.order {
		if node := g.nodes[k]; node.Defined && len(node.Dependencies) == 0 {
			leaves = append(leaves, node)
		}
	}
	return leaves
}

// visit states for depth-first traversal
const (
	unvisited = iota
	visiting
	done
)

// DetectCycles returns a CycleError for the first cycle found, walking
// nodes in insertion order.
func (g *Graph[K]) DetectCycles() error {
	state := make(map[K]int, len(g.nodes))
	var stack []K

	var visit func(K) error
	visit = func(k K) error {
		state[k] = visiting
		stack = append(stack, k)

		for _, dep := range g.Dependencies(k) {
			switch state[dep] {
			case visiting:
				start := slices.Index(stack, dep)
				return CycleError[K]{Path: slices.Clone(stack[start:]), labels: g.labels()}
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[k] = done
		return nil
	}

	for _, k := range g.order {
		if state[k] != unvisited {
			continue
		}
		if err := visit(k); err != nil {
			return err
		}
	}

	return nil
}

// IsAcyclic reports whether the graph has no cycle.
func (g *Graph[K]) IsAcyclic() bool {
	return g.DetectCycles() == nil
}

// TopologicalSort returns every node with dependencies before dependents.
func (g *Graph[K]) TopologicalSort() ([]K, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	visited := make(map[K]bool, len(g.nodes))
	sorted := make([]K, 0, len(g.nodes))

	var visit func(K)
	visit = func(k K) {
		if visited[k] {
			return
		}
		visited[k] = true

		for _, dep := range g.Dependencies(k) {
			visit(dep)
		}
		sorted = append(sorted, k)
	}

	for _, k := range g.order {
		visit(k)
	}

	return sorted, nil
}

// CalculateDepths sets Node.Depth on every node.
func (g *Graph[K]) CalculateDepths() {
	state := make(map[K]int, len(g.nodes))

	var depth func(K) int
	depth = func(k K) int {
		node := g.nodes[k]
		switch state[k] {
		case done:
			return node.Depth
		case visiting:
			return -1
		}

		state[k] = visiting
		d := 0
		for _, dep := range g.Dependencies(k) {
			sub := depth(dep)
			if sub < 0 {
				d = -1
				break
			}
			d = max(d, sub+1)
		}

		node.Depth = d
		state[k] = done
		return d
	}

	for _, k := range g.order {
		depth(k)
	}
}

func (g *Graph[K]) labels() map[K]string {
	labels := make(map[K]string, len(g.nodes))
	for k, n := range g.nodes {
		labels[k] = n.Label
	}
	return labels
}
