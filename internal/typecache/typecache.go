// Package typecache interns reflect.Type values into small stable indices and
// caches their human-readable names for diagnostics.
//
// Registration keys are built from these indices rather than from type names,
// so two distinct types that happen to print the same never collide.
package typecache

import (
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Info holds cached information about a type.
type Info struct {
	Type reflect.Type
	Kind reflect.Kind

	PkgPath string
	Name    string

	id       atomic.Uint32
	name     string
	nameOnce sync.Once
}

type cache struct {
	types  sync.Map // map[reflect.Type]*Info
	nextID atomic.Uint32
}

var global = &cache{}

// Get returns the cached info for t, creating it on first use.
func Get(t reflect.Type) *Info {
	if t == nil {
		return nil
	}

	if cached, ok := global.types.Load(t); ok {
		return cached.(*Info)
	}

	info := &Info{
		Type:    t,
		Kind:    t.Kind(),
		PkgPath: t.PkgPath(),
		Name:    t.Name(),
	}

	actual, loaded := global.types.LoadOrStore(t, info)
	if !loaded {
		// IDs are handed out only to the winning entry so they stay dense.
		info.id.Store(global.nextID.Add(1))
	}

	return actual.(*Info)
}

// ID returns the interned index of t. The nil type has index 0.
func ID(t reflect.Type) uint32 {
	info := Get(t)
	if info == nil {
		return 0
	}

	return info.Index()
}

// Index returns the interned index of the type.
func (info *Info) Index() uint32 {
	for {
		if id := info.id.Load(); id != 0 {
			return id
		}
		// Another goroutine won LoadOrStore and is about to publish the id.
		runtime.Gosched()
	}
}

// Name returns the formatted name of t, e.g. "*activator.Widget" or "[]string".
func Name(t reflect.Type) string {
	info := Get(t)
	if info == nil {
		return "<nil>"
	}

	return info.FormattedName()
}

// Names formats a list of types as a comma separated string.
func Names(types []reflect.Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = Name(t)
	}

	return strings.Join(parts, ", ")
}

// SignatureKey encodes an ordered list of types into a comparable string.
func SignatureKey(types []reflect.Type) string {
	if len(types) == 0 {
		return ""
	}

	var b strings.Builder
	for i, t := range types {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(ID(t)), 36))
	}

	return b.String()
}

// FormattedName returns the cached formatted name.
func (info *Info) FormattedName() string {
	info.nameOnce.Do(func() {
		info.name = format(info, 0)
	})

	return info.name
}

func format(info *Info, depth int) string {
	const maxDepth = 50

	if info == nil || info.Type == nil {
		return "<nil>"
	}

	t := info.Type
	if depth > maxDepth {
		return t.String()
	}

	switch info.Kind {
	case reflect.Invalid:
		return "<invalid>"

	case reflect.Pointer:
		return "*" + format(Get(t.Elem()), depth+1)

	case reflect.Slice:
		return "[]" + format(Get(t.Elem()), depth+1)

	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), format(Get(t.Elem()), depth+1))

	case reflect.Map:
		return "map[" + format(Get(t.Key()), depth+1) + "]" + format(Get(t.Elem()), depth+1)

	case reflect.Func, reflect.Chan:
		return t.String()

	default:
		if info.PkgPath == "" || info.Name == "" {
			return t.String()
		}

		// Generic instantiations carry the full package path in their
		// name; keep the readable String form for them.
		if strings.Contains(info.Name, "[") {
			return t.String()
		}

		return lastSegment(info.PkgPath) + "." + info.Name
	}
}

func lastSegment(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}

	return path
}
