// Package activator provides a runtime dependency injection engine built around
// activation: every request for a value runs a creator, hands the result to
// exactly one owner, and never caches it.
//
// # Overview
//
// A Registry collects definitions during a build phase. Build freezes it and
// returns an Activator, which resolves requests against the frozen registry
// without locking. The library provides:
//   - Definitions keyed by id, target type and argument types
//   - Three ownership forms: Owned, Shared and by value
//   - Deleters that route destruction through a caller-supplied function
//   - Interceptors and decorators applied on every activation
//   - Typed annotations that parameterize a single activation
//   - An activation context tree for diagnostics and cycle detection
//   - Optional tracing, metrics and validation
//
// # Basic Usage
//
//	r := activator.NewRegistry()
//	activator.RegisterDefault[Widget](r, func() Widget { return Widget{Name: "w"} })
//	activator.Register[Widget](r, "alt", func(name string) Widget { return Widget{Name: name} })
//
//	a, err := r.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w, err := activator.ActivateDefaultValue[Widget](a)
//	alt, err := activator.ActivateValue[Widget](a, "alt", "custom")
//
// # Ownership
//
// ActivateOwned returns an *Owned[T]; the holder calls Close, which runs the
// deleter. ActivateShared returns a reference counted *Shared[T] whose last
// Close runs the deleter. ActivateValue moves the value out: the shell is
// zeroed and the deleter runs on it before the call returns. Deleters must
// therefore accept a zeroed shell; resources reachable from the value, such
// as the inner instance a decorator wraps, leave with the value.
//
// # Arguments and Ids
//
// A definition matches only when the id and every argument type match
// exactly. DefaultID, the empty string, is the id used by the Default
// variants. Arguments are passed as ...any and keyed by their dynamic type;
// wrap a value with Arg to key it by a static interface type instead.
//
// # Contexts and Annotations
//
// Creators that take a *Context can activate their own dependencies:
//
//	activator.RegisterDefault[*Service](r, func(ctx *activator.Context) (*Service, error) {
//	    store, err := activator.Activate[Store](ctx, "primary").
//	        WithAnnotation(ReadOnly(true)).
//	        Value()
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Service{store: store}, nil
//	})
//
// Each nested activation runs in a child Context. Annotations a caller
// attaches apply to that one activation only: a child never inherits its
// parent's annotations. A definition's own annotations are merged into every
// context that resolves through it without overwriting caller values.
//
// # Interceptors and Decorators
//
// Interceptors are keyed by target type and argument types, apply to every
// id, and may mutate the instance. Decorators are keyed by target type alone
// and may replace the instance; each receives the previous instance as an
// *Owned[T] and becomes responsible for it.
//
// # Automatic Registration
//
// RegisterType derives a definition from a constructor whose parameters are
// themselves activated under DefaultID. Parameter objects embedding In select
// ids per field. RegisterExplicit names the type and id of each parameter.
//
// # Dependency Graph
//
// Registry.Graph snapshots the dependencies declared at registration time.
// Registry.Validate reports missing definitions and cycles without running
// any creator; Build runs it when given WithGraphValidation.
//
// # Error Handling
//
// Failures are returned synchronously as typed errors:
//   - DuplicateDefinitionError: a key was registered twice
//   - UnresolvedDependencyError: no definition matches the requested key
//   - AnnotationNotFoundError: a context lacks a requested annotation
//   - TypeMismatchError: an erased value was retrieved as the wrong type
//
// With WithTrace, unresolved errors also list every registered key.
//
// # Concurrency
//
// A frozen registry and its Activator are safe for concurrent use. A Context,
// its annotations and an Activation builder belong to the goroutine that
// created them.
package activator
