package activator

import (
	"context"
)

type contextKey struct{}

// IntoContext returns a copy of ctx carrying c. Framework middleware uses it
// to hand a per-request root Context to handlers.
func IntoContext(ctx context.Context, c *Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the Context stored by IntoContext.
func FromContext(ctx context.Context) (*Context, error) {
	if ctx == nil {
		return nil, ErrContextNotFound
	}

	c, ok := ctx.Value(contextKey{}).(*Context)
	if !ok || c == nil {
		return nil, ErrContextNotFound
	}

	return c, nil
}

// ActivateFromContext activates T under id in a child of the Context stored
// in ctx. The child is seeded with the root's annotations, so values a
// middleware attached to the request reach the activated definition.
//
// This is the one entry point where a child starts with its parent's
// annotations. Activate and every nested activation begin with an empty set;
// here the root's values are copied in explicitly, fill-absent, and the root
// itself is never modified.
//
// Example:
//
//	func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
//	    svc, err := activator.ActivateFromContext[*UserService](r.Context(), activator.DefaultID)
//	    if err != nil {
//	        http.Error(w, err.Error(), http.StatusInternalServerError)
//	        return
//	    }
//	    defer svc.Close()
//	    // ...
//	}
func ActivateFromContext[T any](ctx context.Context, id string, args ...any) (*Owned[T], error) {
	root, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}

	b := Activate[T](root, id, args...)
	if b.err != nil {
		return nil, b.err
	}
	b.ctx.annotations.Merge(root.annotations)

	return b.Owned()
}
