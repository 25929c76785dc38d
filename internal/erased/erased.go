// Package erased provides the type-erased value box used to store heterogeneous
// deleters, decorators and annotation values behind a single representation.
//
// A Box remembers the type it was stored as, so retrieval is a checked operation:
// asking for the wrong type yields a *MismatchError instead of a silent zero value.
package erased

import (
	"fmt"
	"reflect"
)

// Box holds one value together with the type it was stored as.
type Box struct {
	typ   reflect.Type
	value any
}

// MismatchError is returned by Get when the requested type differs from the stored one.
type MismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("erased value type mismatch: expected %v, stored %v", e.Expected, e.Actual)
}

// New stores v under the static type T. Interface types keep their interface
// identity, which is what distinguishes New[io.Reader](buf) from New(buf).
func New[T any](v T) Box {
	return Box{typ: reflect.TypeFor[T](), value: v}
}

// Of stores v under an explicit type. It panics if v is not assignable to t,
// since that can only happen through a programming error in the caller.
func Of(t reflect.Type, v any) Box {
	if t == nil {
		panic("erased: nil type")
	}

	if v != nil && !reflect.TypeOf(v).AssignableTo(t) {
		panic(fmt.Sprintf("erased: %v is not assignable to %v", reflect.TypeOf(v), t))
	}

	return Box{typ: t, value: v}
}

// Type returns the type the value was stored as, or nil for an empty box.
func (b Box) Type() reflect.Type {
	return b.typ
}

// IsZero reports whether the box was never filled.
func (b Box) IsZero() bool {
	return b.typ == nil
}

// Raw returns the stored value without any type check.
func (b Box) Raw() any {
	return b.value
}

// Get retrieves the stored value as T.
func Get[T any](b Box) (T, error) {
	var zero T

	want := reflect.TypeFor[T]()
	if b.typ != want {
		return zero, &MismatchError{Expected: want, Actual: b.typ}
	}

	if b.value == nil {
		return zero, nil
	}

	v, ok := b.value.(T)
	if !ok {
		return zero, &MismatchError{Expected: want, Actual: reflect.TypeOf(b.value)}
	}

	return v, nil
}

// Must is Get that panics on mismatch.
func Must[T any](b Box) T {
	v, err := Get[T](b)
	if err != nil {
		panic(err)
	}

	return v
}
