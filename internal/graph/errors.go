package graph

import (
	"fmt"
	"strings"
)

// CycleError represents a circular dependency between definitions. Path
// lists the nodes on the cycle; the last depends on the first.
type CycleError[K comparable] struct {
	Path []K

	labels map[K]string
}

// Label returns the display label of k.
func (e CycleError[K]) Label(k K) string {
	if l, ok := e.labels[k]; ok {
		return l
	}
	return fmt.Sprint(k)
}

func (e CycleError[K]) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	for _, k := range e.Path {
		b.WriteString(fmt.Sprintf("    %s\n", e.Label(k)))
		b.WriteString("      ↓\n")
	}
	if len(e.Path) > 0 {
		b.WriteString(fmt.Sprintf("    %s (cycle)\n", e.Label(e.Path[0])))
	}

	return b.String()
}
