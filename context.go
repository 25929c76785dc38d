package activator

import (
	"context"
	"reflect"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context is one node of the activation tree. Every activation runs in its
// own Context, and an activation requested from inside a creator gets a
// child of the requesting creator's Context.
//
// A child starts with an empty annotation set: annotations a caller attaches
// apply to that single activation, never to its descendants. The only
// annotations merged in automatically are those of the definition being
// activated, and they never overwrite a caller-supplied value.
//
// A Context belongs to the call stack that created it and must not be shared
// across goroutines.
type Context struct {
	id            string
	description   string
	correlationID uuid.UUID
	activator     *Activator
	parent        *Context
	annotations   *Annotations
	signature     Signature
	consumed      bool

	ctx context.Context
}

// NewContext creates a root context for activations by id. annotations, which
// may be nil, is copied.
func NewContext(a *Activator, id string, annotations *Annotations) *Context {
	return NewContextWith(context.Background(), a, id, annotations)
}

// NewContextWith is NewContext carrying ctx, whose trace span becomes the
// parent of activation spans.
func NewContextWith(ctx context.Context, a *Activator, id string, annotations *Annotations) *Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return &Context{
		id:            id,
		correlationID: uuid.New(),
		activator:     a,
		annotations:   annotations.Clone(),
		ctx:           ctx,
	}
}

func (c *Context) child(id, description string) *Context {
	return &Context{
		id:            id,
		description:   description,
		correlationID: uuid.New(),
		activator:     c.activator,
		parent:        c,
		annotations:   NewAnnotations(),
		ctx:           c.ctx,
	}
}

// ID returns the registration id this context activates.
func (c *Context) ID() string {
	return c.id
}

// Description returns the human readable description given at creation.
func (c *Context) Description() string {
	return c.description
}

// CorrelationID uniquely identifies this context.
func (c *Context) CorrelationID() uuid.UUID {
	return c.correlationID
}

// Parent returns the requesting context, or nil for a root.
func (c *Context) Parent() *Context {
	return c.parent
}

// Depth returns the number of ancestors.
func (c *Context) Depth() int {
	depth := 0
	for p := c.parent; p != nil; p = p.parent {
		depth++
	}
	return depth
}

// Ancestors returns the chain of parents, nearest first.
func (c *Context) Ancestors() []*Context {
	var chain []*Context
	for p := c.parent; p != nil; p = p.parent {
		chain = append(chain, p)
	}
	return chain
}

// Signature returns the signature being activated. It is set once
// resolution starts.
func (c *Context) Signature() Signature {
	return c.signature
}

// Annotations returns the context's annotation set.
func (c *Context) Annotations() *Annotations {
	return c.annotations
}

// Activator returns the activator resolving this context.
func (c *Context) Activator() *Activator {
	return c.activator
}

// Context returns the context.Context of this activation, which carries its
// trace span.
func (c *Context) Context() context.Context {
	return c.ctx
}

// String renders the ancestry, e.g. "current:[b]<-parent:[a]".
func (c *Context) String() string {
	var b strings.Builder
	b.WriteString("current:[" + c.id + "]")
	for p := c.parent; p != nil; p = p.parent {
		b.WriteString("<-parent:[" + p.id + "]")
	}
	return b.String()
}

func (c *Context) logger() *zap.Logger {
	if c.activator == nil {
		return zap.NewNop()
	}
	return c.activator.opts.logger
}

// activateDependency activates t under id in a child context and moves the
// value out.
func (c *Context) activateDependency(t reflect.Type, id, description string) (reflect.Value, error) {
	return c.activator.activateValue(c.child(id, description), Signature{Type: t}, nil)
}

// HasAnnotation reports whether the context carries an annotation of type A.
func HasAnnotation[A any](c *Context) bool {
	return Contains[A](c.annotations)
}

// Annotation returns the context's annotation of type A, or an
// AnnotationNotFoundError.
func Annotation[A any](c *Context) (A, error) {
	return Lookup[A](c.annotations)
}

// TaggedAnnotation returns the context's annotation of type A under tag.
func TaggedAnnotation[A any](c *Context, tag int) (A, error) {
	return LookupTagged[A](c.annotations, tag)
}

// MustAnnotation is Annotation that panics when the annotation is missing.
func MustAnnotation[A any](c *Context) A {
	v, err := Annotation[A](c)
	if err != nil {
		panic(err)
	}
	return v
}

// DetectCycle reports a CircularActivationError when an ancestor of c is
// activating the same id and signature. The activator never calls it itself;
// creators and interceptors that may recurse call it to fail early.
func DetectCycle(c *Context) error {
	if c == nil || c.signature.Type == nil {
		return nil
	}

	for p := c.parent; p != nil; p = p.parent {
		if p.id != c.id || p.signature.Type == nil || !p.signature.Equal(c.signature) {
			continue
		}

		var chain []string
		for q := c; ; q = q.parent {
			chain = append(chain, Key{ID: q.id, Signature: q.signature}.String())
			if q == p {
				break
			}
		}
		slices.Reverse(chain)

		return CircularActivationError{Chain: chain}
	}

	return nil
}
