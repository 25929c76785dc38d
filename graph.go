package activator

import (
	"io"

	"go.uber.org/multierr"

	"github.com/junioryono/activator/internal/graph"
)

// Graph is the static dependency graph of a registry. Only dependencies
// declared at registration time appear as edges: constructor parameters and
// In fields of RegisterType and RegisterExplicit, and the base definition of
// DeriveAs and DeriveWrapped. Creators registered with Register resolve
// their dependencies while running and show up without edges.
type Graph struct {
	g    *graph.Graph[definitionKey]
	keys map[definitionKey]Key
}

// Graph snapshots the registry's dependency graph.
func (r *Registry) Graph() *Graph {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}

	out := &Graph{
		g:    graph.New[definitionKey](),
		keys: make(map[definitionKey]Key, len(r.order)),
	}

	for _, key := range r.order {
		def := r.definitions[key.key()]

		edges := make([]graph.Edge[definitionKey], len(def.dependencies))
		for i, d := range def.dependencies {
			k := d.key.key()
			if _, ok := out.keys[k]; !ok {
				out.keys[k] = d.key
			}
			edges[i] = graph.Edge[definitionKey]{To: k, Label: d.key.String(), Optional: d.optional}
		}

		out.keys[key.key()] = key
		out.g.Add(key.key(), key.String(), edges...)
	}

	return out
}

// Validate reports every required constructor dependency without a
// definition as a MissingDependencyError, and the first dependency cycle as
// a CircularDependencyError. Use multierr.Errors to split the result.
func (r *Registry) Validate() error {
	return r.Graph().Validate()
}

// Validate is Registry.Validate on the snapshot.
func (g *Graph) Validate() error {
	var err error
	for _, m := range g.g.Missing() {
		err = multierr.Append(err, MissingDependencyError{Definition: g.keys[m.From], Dependency: g.keys[m.To]})
	}

	if cycleErr := g.g.DetectCycles(); cycleErr != nil {
		err = multierr.Append(err, g.circular(cycleErr))
	}

	return err
}

// Keys returns the registered keys in registration order.
func (g *Graph) Keys() []Key {
	var keys []Key
	for _, n := range g.g.Nodes() {
		if n.Defined {
			keys = append(keys, g.keys[n.Key])
		}
	}
	return keys
}

// Dependencies returns the keys k declares as dependencies.
func (g *Graph) Dependencies(k Key) []Key {
	return g.resolve(g.g.Dependencies(k.key()))
}

// Dependents returns the registered keys that declare k as a dependency.
func (g *Graph) Dependents(k Key) []Key {
	return g.resolve(g.g.Dependents(k.key()))
}

// Order returns every key, registered or only referenced, with dependencies
// before their dependents.
func (g *Graph) Order() ([]Key, error) {
	sorted, err := g.g.TopologicalSort()
	if err != nil {
		return nil, g.circular(err)
	}
	return g.resolve(sorted), nil
}

// WriteDOT renders the graph in Graphviz DOT format.
func (g *Graph) WriteDOT(w io.Writer) error {
	return graph.NewVisualizer(g.g).WriteDOT(w)
}

// WriteText renders the graph grouped by dependency depth.
func (g *Graph) WriteText(w io.Writer) error {
	return graph.NewVisualizer(g.g).WriteText(w)
}

func (g *Graph) resolve(ks []definitionKey) []Key {
	if len(ks) == 0 {
		return nil
	}

	keys := make([]Key, len(ks))
	for i, k := range ks {
		keys[i] = g.keys[k]
	}
	return keys
}

func (g *Graph) circular(err error) error {
	cycle, ok := err.(graph.CycleError[definitionKey])
	if !ok {
		return err
	}
	return CircularDependencyError{Chain: g.resolve(cycle.Path)}
}
