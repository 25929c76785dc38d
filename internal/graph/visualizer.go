package graph

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Visualizer renders a dependency graph
type Visualizer[K comparable] struct {
	graph *Graph[K]
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer[K comparable](graph *Graph[K]) *Visualizer[K] {
	return &Visualizer[K]{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format. Undefined dependencies
// are drawn gray and optional edges dashed.
func (v *Visualizer[K]) WriteDOT(w io.Writer) error {
	var b strings.Builder

	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	ids := make(map[K]string, len(v.graph.order))
	for i, node := range v.graph.Nodes() {
		id := fmt.Sprintf("n%d", i)
		ids[node.Key] = id

		color := "lightblue"
		if !node.Defined {
			color = "lightgray"
		}

		fmt.Fprintf(&b, "  %s [label=%s, fillcolor=%q, style=filled];\n", id, strconv.Quote(node.Label), color)
	}

	for _, node := range v.graph.Nodes() {
		for _, e := range node.Dependencies {
			if e.Optional {
				fmt.Fprintf(&b, "  %s -> %s [style=dashed];\n", ids[node.Key], ids[e.To])
				continue
			}
			fmt.Fprintf(&b, "  %s -> %s;\n", ids[node.Key], ids[e.To])
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes the graph grouped by depth, leaves first, followed by
// summary statistics.
func (v *Visualizer[K]) WriteText(w io.Writer) error {
	var b strings.Builder

	b.WriteString("Dependency Graph:\n")
	b.WriteString("=================\n\n")

	v.graph.CalculateDepths()

	levels := make(map[int][]*Node[K])
	maxDepth := 0
	for _, node := range v.graph.Nodes() {
		levels[node.Depth] = append(levels[node.Depth], node)
		maxDepth = max(maxDepth, node.Depth)
	}

	for depth := 0; depth <= maxDepth; depth++ {
		nodes, ok := levels[depth]
		if !ok {
			continue
		}

		fmt.Fprintf(&b, "Level %d:\n", depth)
		b.WriteString("--------\n")
		for _, node := range nodes {
			v.writeNodeDetails(&b, node, "  ")
		}
		b.WriteString("\n")
	}

	if nodes, ok := levels[-1]; ok {
		b.WriteString("Nodes in Cycles:\n")
		b.WriteString("----------------\n")
		for _, node := range nodes {
			v.writeNodeDetails(&b, node, "  ")
		}
		b.WriteString("\n")
	}

	v.writeStatistics(&b)

	_, err := io.WriteString(w, b.String())
	return err
}

func (v *Visualizer[K]) writeNodeDetails(b *strings.Builder, node *Node[K], indent string) {
	b.WriteString(indent + node.Label)
	if !node.Defined {
		b.WriteString(" (undefined)")
	}
	b.WriteString("\n")

	if len(node.Dependencies) > 0 {
		deps := make([]string, len(node.Dependencies))
		for i, e := range node.Dependencies {
			deps[i] = v.graph.nodes[e.To].Label
			if e.Optional {
				deps[i] += " (optional)"
			}
		}
		fmt.Fprintf(b, "%s  Dependencies: [%s]\n", indent, strings.Join(deps, ", "))
	}

	if len(node.Dependents) > 0 {
		deps := make([]string, len(node.Dependents))
		for i, k := range node.Dependents {
			deps[i] = v.graph.nodes[k].Label
		}
		fmt.Fprintf(b, "%s  Dependents: [%s]\n", indent, strings.Join(deps, ", "))
	}
}

func (v *Visualizer[K]) writeStatistics(b *strings.Builder) {
	b.WriteString("Statistics:\n")
	b.WriteString("-----------\n")
	fmt.Fprintf(b, "  Total definitions: %d\n", v.graph.Size())
	fmt.Fprintf(b, "  Total edges: %d\n", v.countEdges())
	fmt.Fprintf(b, "  Root nodes (no dependents): %d\n", len(v.graph.Roots()))
	fmt.Fprintf(b, "  Leaf nodes (no dependencies): %d\n", len(v.graph.Leaves()))
	fmt.Fprintf(b, "  Missing dependencies: %d\n", len(v.graph.Missing()))

	if v.graph.IsAcyclic() {
		b.WriteString("  Cycles: None (graph is acyclic)\n")
	} else {
		b.WriteString("  Cycles: DETECTED (graph contains circular dependencies)\n")
	}
}

func (v *Visualizer[K]) countEdges() int {
	count := 0
	for _, node := range v.graph.nodes {
		count += len(node.Dependencies)
	}
	return count
}
