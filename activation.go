package activator

import (
	"fmt"
	"reflect"
	"slices"
)

// Activation is a deferred activation of T in a child context. It collects
// arguments and annotations until one of Owned, Shared or Value resolves it.
//
// Example:
//
//	conn, err := activator.Activate[*Conn](ctx, "primary").
//	    With(dsn).
//	    WithAnnotation(Timeout(5 * time.Second)).
//	    Owned()
type Activation[T any] struct {
	ctx  *Context
	args []any
	err  error
}

// Activate starts an activation of T under id in a child of ctx.
func Activate[T any](ctx *Context, id string, args ...any) *Activation[T] {
	return ActivateWithDescription[T](ctx, id, "", args...)
}

// ActivateDefault is Activate under DefaultID.
func ActivateDefault[T any](ctx *Context, args ...any) *Activation[T] {
	return ActivateWithDescription[T](ctx, DefaultID, "", args...)
}

// ActivateWithDescription is Activate with a description recorded on the
// child context for diagnostics.
func ActivateWithDescription[T any](ctx *Context, id, description string, args ...any) *Activation[T] {
	if ctx == nil {
		return &Activation[T]{err: ErrContextNil}
	}

	if ctx.activator == nil {
		return &Activation[T]{err: ErrActivatorNil}
	}

	return &Activation[T]{ctx: ctx.child(id, description), args: slices.Clone(args)}
}

// ActivateDefaultWithDescription is ActivateWithDescription under DefaultID.
func ActivateDefaultWithDescription[T any](ctx *Context, description string, args ...any) *Activation[T] {
	return ActivateWithDescription[T](ctx, DefaultID, description, args...)
}

// Context returns the child context the activation resolves in.
func (b *Activation[T]) Context() *Context {
	return b.ctx
}

// Err returns the first error recorded while building the activation.
func (b *Activation[T]) Err() error {
	return b.err
}

// With returns a builder with args appended to the argument list. The
// receiver's arguments are left unchanged, but both builders share the child
// context: annotations set on either are visible to both, and once one of
// them resolves the other fails with ErrActivationConsumed. Start a new
// Activate for each resolution.
func (b *Activation[T]) With(args ...any) *Activation[T] {
	next := &Activation[T]{ctx: b.ctx, err: b.err}
	next.args = append(slices.Clone(b.args), args...)
	return next
}

// WithReference appends ptr as an argument. The argument type is the pointer
// type, so the creator receives the caller's variable rather than a copy.
func (b *Activation[T]) WithReference(ptr any) *Activation[T] {
	if b.err != nil {
		return b
	}

	v := reflect.ValueOf(ptr)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		next := b.With()
		next.err = fmt.Errorf("reference argument %d: %w", len(b.args), ErrNilArgument)
		return next
	}

	return b.With(ptr)
}

// WithAnnotation stores values in the child context, each under its dynamic
// type. A caller value takes precedence over the definition's own annotation
// of the same type.
func (b *Activation[T]) WithAnnotation(values ...any) *Activation[T] {
	if b.err == nil {
		for _, v := range values {
			b.ctx.annotations.Set(v)
		}
	}
	return b
}

// WithTaggedAnnotation stores v in the child context under tag.
func (b *Activation[T]) WithTaggedAnnotation(tag int, v any) *Activation[T] {
	if b.err == nil {
		b.ctx.annotations.SetTagged(tag, v)
	}
	return b
}

// WithOptionalAnnotation stores *v under the static type A when v is not nil.
func WithOptionalAnnotation[T, A any](b *Activation[T], v *A) *Activation[T] {
	if b.err == nil && v != nil {
		Annotate(b.ctx.annotations, *v)
	}
	return b
}

// WithOptionalAnnotationFunc stores fn(*v) under the static type B when v is
// not nil.
func WithOptionalAnnotationFunc[T, A, B any](b *Activation[T], v *A, fn func(A) B) *Activation[T] {
	if b.err == nil && v != nil && fn != nil {
		Annotate(b.ctx.annotations, fn(*v))
	}
	return b
}

// Owned resolves the activation into a uniquely owned instance.
func (b *Activation[T]) Owned() (*Owned[T], error) {
	if b.err != nil {
		return nil, b.err
	}
	return ActivateOwnedIn[T](b.ctx, b.args...)
}

// Shared resolves the activation into a reference counted instance.
func (b *Activation[T]) Shared() (*Shared[T], error) {
	owned, err := b.Owned()
	if err != nil {
		return nil, err
	}
	return owned.Share(), nil
}

// Value resolves the activation and moves the value out.
func (b *Activation[T]) Value() (T, error) {
	owned, err := b.Owned()
	if err != nil {
		var zero T
		return zero, err
	}
	return owned.Take(), nil
}

// Conversion is an activation of one type delivered as another.
type Conversion[D any] struct {
	resolve func() (*Owned[D], error)
}

// ConvertTo delivers the activation of T as D, by interface assertion or type
// conversion. The T instance stays alive until the D result is destroyed.
// A value that cannot be converted fails with TypeMismatchError.
func ConvertTo[D, T any](b *Activation[T]) *Conversion[D] {
	return &Conversion[D]{resolve: func() (*Owned[D], error) {
		owned, err := b.Owned()
		if err != nil {
			return nil, err
		}

		d, ok := convertTo[D](owned.Value())
		if !ok {
			owned.Close()
			return nil, TypeMismatchError{
				Expected: reflect.TypeFor[D](),
				Actual:   reflect.TypeFor[T](),
				Context:  "conversion",
			}
		}

		return NewOwned(&d, func(*D) { owned.Close() }), nil
	}}
}

// ConvertWith delivers the activation of T as W by moving the T into wrap.
func ConvertWith[W, T any](b *Activation[T], wrap func(T) W) *Conversion[W] {
	return &Conversion[W]{resolve: func() (*Owned[W], error) {
		if wrap == nil {
			return nil, fmt.Errorf("convert %s: wrap function cannot be nil", formatType(reflect.TypeFor[T]()))
		}

		owned, err := b.Owned()
		if err != nil {
			return nil, err
		}

		w := wrap(owned.Take())
		return NewOwned(&w, nil), nil
	}}
}

// Owned resolves the conversion into a uniquely owned instance.
func (c *Conversion[D]) Owned() (*Owned[D], error) {
	return c.resolve()
}

// Shared resolves the conversion into a reference counted instance.
func (c *Conversion[D]) Shared() (*Shared[D], error) {
	owned, err := c.resolve()
	if err != nil {
		return nil, err
	}
	return owned.Share(), nil
}

// Value resolves the conversion and moves the value out.
func (c *Conversion[D]) Value() (D, error) {
	owned, err := c.resolve()
	if err != nil {
		var zero D
		return zero, err
	}
	return owned.Take(), nil
}
