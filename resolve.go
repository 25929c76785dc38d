package activator

import (
	"reflect"
)

// ActivateOwned activates T under id with args and returns a uniquely owned
// instance. The argument types must match a registered signature exactly;
// use Arg to pass a value under an interface type.
func ActivateOwned[T any](a *Activator, id string, args ...any) (*Owned[T], error) {
	return ActivateAnnotatedOwned[T](a, nil, id, args...)
}

// ActivateShared is ActivateOwned returning a reference counted instance.
func ActivateShared[T any](a *Activator, id string, args ...any) (*Shared[T], error) {
	return ActivateAnnotatedShared[T](a, nil, id, args...)
}

// ActivateValue activates T under id with args and moves the value out. The
// deleter runs on the zeroed shell before ActivateValue returns, so anything
// the value itself owns, such as a decorator's inner *Owned, moves out with
// it and stays the caller's to close.
func ActivateValue[T any](a *Activator, id string, args ...any) (T, error) {
	return ActivateAnnotatedValue[T](a, nil, id, args...)
}

// ActivateDefaultOwned is ActivateOwned under DefaultID.
func ActivateDefaultOwned[T any](a *Activator, args ...any) (*Owned[T], error) {
	return ActivateOwned[T](a, DefaultID, args...)
}

// ActivateDefaultShared is ActivateShared under DefaultID.
func ActivateDefaultShared[T any](a *Activator, args ...any) (*Shared[T], error) {
	return ActivateShared[T](a, DefaultID, args...)
}

// ActivateDefaultValue is ActivateValue under DefaultID.
func ActivateDefaultValue[T any](a *Activator, args ...any) (T, error) {
	return ActivateValue[T](a, DefaultID, args...)
}

// ActivateAnnotatedOwned is ActivateOwned in a root context seeded with a
// copy of annotations.
func ActivateAnnotatedOwned[T any](a *Activator, annotations *Annotations, id string, args ...any) (*Owned[T], error) {
	if a == nil {
		return nil, ErrActivatorNil
	}
	return ActivateOwnedIn[T](NewContext(a, id, annotations), args...)
}

// ActivateAnnotatedShared is ActivateShared in a root context seeded with a
// copy of annotations.
func ActivateAnnotatedShared[T any](a *Activator, annotations *Annotations, id string, args ...any) (*Shared[T], error) {
	owned, err := ActivateAnnotatedOwned[T](a, annotations, id, args...)
	if err != nil {
		return nil, err
	}
	return owned.Share(), nil
}

// ActivateAnnotatedValue is ActivateValue in a root context seeded with a
// copy of annotations.
func ActivateAnnotatedValue[T any](a *Activator, annotations *Annotations, id string, args ...any) (T, error) {
	owned, err := ActivateAnnotatedOwned[T](a, annotations, id, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return owned.Take(), nil
}

// ActivateOwnedIn resolves T in ctx itself, using the id and annotations ctx
// was created with. A context resolves exactly once; a second call fails
// with ErrActivationConsumed.
func ActivateOwnedIn[T any](ctx *Context, args ...any) (*Owned[T], error) {
	if ctx == nil {
		return nil, ErrContextNil
	}

	if ctx.activator == nil {
		return nil, ErrActivatorNil
	}

	inst, err := ctx.activator.activate(ctx, reflect.TypeFor[T](), args)
	if err != nil {
		return nil, err
	}

	owned, err := ownedFrom[T](inst)
	if err != nil {
		inst.release()
		return nil, err
	}
	return owned, nil
}

// ActivateSharedIn is ActivateOwnedIn returning a reference counted instance.
func ActivateSharedIn[T any](ctx *Context, args ...any) (*Shared[T], error) {
	owned, err := ActivateOwnedIn[T](ctx, args...)
	if err != nil {
		return nil, err
	}
	return owned.Share(), nil
}

// ActivateValueIn is ActivateOwnedIn moving the value out.
func ActivateValueIn[T any](ctx *Context, args ...any) (T, error) {
	owned, err := ActivateOwnedIn[T](ctx, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return owned.Take(), nil
}

// CanActivate reports whether a definition of T exists under id for the
// given argument types.
func CanActivate[T any](a *Activator, id string, argTypes ...reflect.Type) bool {
	if a == nil {
		return false
	}
	return a.registry.Has(id, Signature{Type: reflect.TypeFor[T](), Args: argTypes})
}

// CanActivateDefault is CanActivate under DefaultID.
func CanActivateDefault[T any](a *Activator, argTypes ...reflect.Type) bool {
	return CanActivate[T](a, DefaultID, argTypes...)
}

// MustActivateValue is ActivateValue that panics on error.
func MustActivateValue[T any](a *Activator, id string, args ...any) T {
	v, err := ActivateValue[T](a, id, args...)
	if err != nil {
		panic(err)
	}
	return v
}

// MustActivateOwned is ActivateOwned that panics on error.
func MustActivateOwned[T any](a *Activator, id string, args ...any) *Owned[T] {
	o, err := ActivateOwned[T](a, id, args...)
	if err != nil {
		panic(err)
	}
	return o
}
