package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/activator/internal/graph"
)

func dep(to string) graph.Edge[string] {
	return graph.Edge[string]{To: to, Label: to}
}

func optional(to string) graph.Edge[string] {
	return graph.Edge[string]{To: to, Label: to, Optional: true}
}

// diamond builds A -> B -> D, A -> C -> D
func diamond() *graph.Graph[string] {
	g := graph.New[string]()
	g.Add("D", "D")
	g.Add("B", "B", dep("D"))
	g.Add("C", "C", dep("D"))
	g.Add("A", "A", dep("B"), dep("C"))
	return g
}

func TestGraph_Cycles(t *testing.T) {
	tests := []struct {
		name      string
		build     func() *graph.Graph[string]
		wantCycle []string
	}{
		{
			name: "self-cycle",
			build: func() *graph.Graph[string] {
				g := graph.New[string]()
				g.Add("Self", "Self", dep("Self"))
				return g
			},
			wantCycle: []string{"Self"},
		},
		{
			name:  "diamond-no-cycle",
			build: diamond,
		},
		{
			name: "three-node-cycle",
			build: func() *graph.Graph[string] {
				g := graph.New[string]()
				g.Add("A", "A", dep("B"))
				g.Add("B", "B", dep("C"))
				g.Add("C", "C", dep("A"))
				return g
			},
			wantCycle: []string{"A", "B", "C"},
		},
		{
			name: "cycle-below-acyclic-root",
			build: func() *graph.Graph[string] {
				g := graph.New[string]()
				g.Add("Root", "Root", dep("X"))
				g.Add("X", "X", dep("Y"))
				g.Add("Y", "Y", dep("X"))
				return g
			},
			wantCycle: []string{"X", "Y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.build()
			err := g.DetectCycles()

			if tt.wantCycle == nil {
				assert.NoError(t, err)
				assert.True(t, g.IsAcyclic())
				return
			}

			var cycleErr graph.CycleError[string]
			require.ErrorAs(t, err, &cycleErr)
			assert.Equal(t, tt.wantCycle, cycleErr.Path)
			assert.False(t, g.IsAcyclic())
			assert.Contains(t, err.Error(), tt.wantCycle[0]+" (cycle)")
		})
	}
}

func TestGraph_TopologicalSort(t *testing.T) {
	sorted, err := diamond().TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "B", "C", "A"}, sorted)

	g := graph.New[string]()
	g.Add("A", "A", dep("B"))
	g.Add("B", "B", dep("A"))

	_, err = g.TopologicalSort()
	assert.Error(t, err)
}

func TestGraph_Relations(t *testing.T) {
	g := diamond()

	assert.Equal(t, []string{"B", "C"}, g.Dependencies("A"))
	assert.Equal(t, []string{"B", "C"}, g.Dependents("D"))
	assert.Equal(t, []string{"B", "D", "C"}, g.TransitiveDependencies("A"))
	assert.Nil(t, g.Dependencies("missing"))
	assert.Nil(t, g.Dependents("missing"))

	roots := g.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "A", roots[0].Key)

	leaves := g.Leaves()
	require.Len(t, leaves, 1)
	assert.Equal(t, "D", leaves[0].Key)
}

func TestGraph_Depths(t *testing.T) {
	g := diamond()
	g.Add("Loop", "Loop", dep("Loop"))
	g.CalculateDepths()

	tests := []struct {
		key  string
		want int
	}{
		{"D", 0},
		{"B", 1},
		{"C", 1},
		{"A", 2},
		{"Loop", -1},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Node(tt.key).Depth)
		})
	}
}

func TestGraph_Missing(t *testing.T) {
	g := graph.New[string]()
	g.Add("Service", "Service", dep("Config"), optional("Metrics"), dep("Logger"))
	g.Add("Logger", "Logger")

	missing := g.Missing()
	require.Len(t, missing, 1)
	assert.Equal(t, graph.MissingEdge[string]{From: "Service", To: "Config"}, missing[0])

	assert.True(t, g.Has("Logger"))
	assert.False(t, g.Has("Config"), "placeholder nodes are not defined")
	assert.Equal(t, 2, g.Size())
	assert.Len(t, g.Nodes(), 4)
}

func TestGraph_AddReplacesEdges(t *testing.T) {
	g := graph.New[string]()
	g.Add("A", "A", dep("B"))
	g.Add("A", "A", dep("C"))

	assert.Equal(t, []string{"C"}, g.Dependencies("A"))
	assert.Empty(t, g.Dependents("B"))
	assert.Equal(t, []string{"A"}, g.Dependents("C"))
}

func TestVisualizer_WriteDOT(t *testing.T) {
	g := graph.New[string]()
	g.Add("svc", `Service [id "main"]`, dep("cfg"), optional("log"))
	g.Add("cfg", "Config")

	var b strings.Builder
	require.NoError(t, graph.NewVisualizer(g).WriteDOT(&b))

	out := b.String()
	assert.True(t, strings.HasPrefix(out, "digraph dependencies {\n"))
	assert.Contains(t, out, `n0 [label="Service [id \"main\"]", fillcolor="lightblue", style=filled];`)
	assert.Contains(t, out, `n2 [label="log", fillcolor="lightgray", style=filled];`)
	assert.Contains(t, out, "n0 -> n1;")
	assert.Contains(t, out, "n0 -> n2 [style=dashed];")
}

func TestVisualizer_WriteText(t *testing.T) {
	g := diamond()
	g.Add("E", "E", dep("Ghost"))

	var b strings.Builder
	require.NoError(t, graph.NewVisualizer(g).WriteText(&b))

	out := b.String()
	assert.Contains(t, out, "Level 0:")
	assert.Contains(t, out, "Level 2:")
	assert.Contains(t, out, "Ghost (undefined)")
	assert.Contains(t, out, "  A\n    Dependencies: [B, C]\n")
	assert.Contains(t, out, "Total definitions: 5")
	assert.Contains(t, out, "Missing dependencies: 1")
	assert.Contains(t, out, "Cycles: None")
}
