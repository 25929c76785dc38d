package activator

import (
	"fmt"
	"reflect"

	"go.uber.org/dig"
)

var digInType = reflect.TypeFor[dig.In]()

// RegisterFromDig registers T under id with a creator that resolves T from
// c on every activation. A non-default id selects dig's named value of the
// same name.
//
// The container must outlive the registry; dig keeps singletons, so every
// activation of a dig-provided pointer type returns the same pointer.
func RegisterFromDig[T any](r *Registry, id string, c *dig.Container) (*Registration[T], error) {
	if r == nil {
		return nil, ErrRegistryNil
	}

	target := reflect.TypeFor[T]()
	if c == nil {
		return nil, RegistrationError{Type: target, Operation: "register from dig", Cause: ErrDigContainerNil}
	}

	invoke := digInvoker[T](id)
	create := func(*Context, []reflect.Value) (instance, error) {
		p := new(T)
		if err := invoke(c, p); err != nil {
			return instance{}, fmt.Errorf("dig: %w", dig.RootCause(err))
		}
		return instance{ptr: p}, nil
	}

	key := Key{ID: id, Signature: Signature{Type: target}}
	return newRegistration[T](r.define(key, create, deleterBox[T](nil), nil))
}

// digInvoker builds the dig.Invoke call for T, using a parameter object with
// a name tag when id is not the default.
func digInvoker[T any](id string) func(*dig.Container, *T) error {
	if id == DefaultID {
		return func(c *dig.Container, out *T) error {
			return c.Invoke(func(v T) { *out = v })
		}
	}

	target := reflect.TypeFor[T]()
	params := reflect.StructOf([]reflect.StructField{
		{Name: "In", Type: digInType, Anonymous: true},
		{Name: "Value", Type: target, Tag: reflect.StructTag(fmt.Sprintf(`name:%q`, id))},
	})
	fnType := reflect.FuncOf([]reflect.Type{params}, nil, false)

	return func(c *dig.Container, out *T) error {
		fn := reflect.MakeFunc(fnType, func(in []reflect.Value) []reflect.Value {
			reflect.ValueOf(out).Elem().Set(in[0].Field(1))
			return nil
		})
		return c.Invoke(fn.Interface())
	}
}

// ExportToDig provides T to c, activated from a by value under id on each
// dig resolution. dig caches the first result. A non-default id is exported
// as dig's named value of the same name.
func ExportToDig[T any](a *Activator, c *dig.Container, id string) error {
	if a == nil {
		return ErrActivatorNil
	}

	if c == nil {
		return ErrDigContainerNil
	}

	var opts []dig.ProvideOption
	if id != DefaultID {
		opts = append(opts, dig.Name(id))
	}

	err := c.Provide(func() (T, error) {
		return ActivateValue[T](a, id)
	}, opts...)
	if err != nil {
		return fmt.Errorf("export %s to dig: %w", formatType(reflect.TypeFor[T]()), err)
	}

	return nil
}
