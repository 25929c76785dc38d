package activator

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/junioryono/activator/internal/erased"
	"github.com/junioryono/activator/internal/reflection"
)

// Registration is the typed handle returned by the Register functions.
type Registration[T any] struct {
	handle *Handle
}

func newRegistration[T any](h *Handle, err error) (*Registration[T], error) {
	if err != nil {
		return nil, err
	}
	return &Registration[T]{handle: h}, nil
}

// ID returns the registration id.
func (reg *Registration[T]) ID() string {
	return reg.handle.ID()
}

// Key returns the registration key.
func (reg *Registration[T]) Key() Key {
	return reg.handle.Key()
}

// Signature returns the registered signature.
func (reg *Registration[T]) Signature() Signature {
	return reg.handle.Key().Signature
}

// Handle returns the untyped handle.
func (reg *Registration[T]) Handle() *Handle {
	return reg.handle
}

// Err returns the first error recorded by a chained Annotate call.
func (reg *Registration[T]) Err() error {
	return reg.handle.Err()
}

// Annotate adds values to the definition's annotation set. Every activation
// through this definition sees them unless the caller supplied its own value
// of the same type.
func (reg *Registration[T]) Annotate(values ...any) *Registration[T] {
	reg.handle.Annotate(values...)
	return reg
}

// AnnotateTagged adds v under tag.
func (reg *Registration[T]) AnnotateTagged(tag int, v any) *Registration[T] {
	reg.handle.AnnotateTagged(tag, v)
	return reg
}

// AnnotateAs adds v under the static type A, which may be an interface.
func AnnotateAs[A, T any](reg *Registration[T], v A) *Registration[T] {
	reg.handle.annotate(func(a *Annotations) {
		Annotate(a, v)
	})
	return reg
}

// Register defines how to create T under id.
//
// creator is a function of the form
//
//	func([*Context,] A1, ..., An) (R[, error])
//
// where R is T, *T, *Owned[T] or any type assignable to T. The parameters
// after the optional *Context form the argument signature: an activation
// must pass arguments of exactly those types. A creator returning *Owned[T]
// supplies its own deleter.
//
// Example:
//
//	activator.Register[Widget](r, "alt", func(name string) Widget {
//	    return Widget{Name: name}
//	})
func Register[T any](r *Registry, id string, creator any) (*Registration[T], error) {
	return register[T](r, id, creator, nil)
}

// RegisterWithDeleter is Register with a deleter that destroys the instance
// once its owner releases it.
func RegisterWithDeleter[T any](r *Registry, id string, creator any, deleter func(*T)) (*Registration[T], error) {
	return register(r, id, creator, deleter)
}

// RegisterDefault is Register under DefaultID.
func RegisterDefault[T any](r *Registry, creator any) (*Registration[T], error) {
	return register[T](r, DefaultID, creator, nil)
}

// RegisterDefaultWithDeleter is RegisterWithDeleter under DefaultID.
func RegisterDefaultWithDeleter[T any](r *Registry, creator any, deleter func(*T)) (*Registration[T], error) {
	return register(r, DefaultID, creator, deleter)
}

func register[T any](r *Registry, id string, creator any, deleter func(*T)) (*Registration[T], error) {
	if r == nil {
		return nil, ErrRegistryNil
	}

	target := reflect.TypeFor[T]()
	if creator == nil {
		return nil, RegistrationError{Type: target, Operation: "register", Cause: ErrCreatorNil}
	}

	info, err := r.analyzer.Analyze(creator)
	if err != nil {
		return nil, RegistrationError{Type: target, Operation: "register", Cause: fmt.Errorf("%w: %w", ErrInvalidCreator, err)}
	}

	if info.ParamObject {
		return nil, RegistrationError{
			Type:      target,
			Operation: "register",
			Cause:     fmt.Errorf("%w: parameter objects are only supported by RegisterType", ErrInvalidCreator),
		}
	}

	form, err := resultForm[T](info)
	if err != nil {
		return nil, RegistrationError{Type: target, Operation: "register", Cause: err}
	}

	create := func(ctx *Context, args []reflect.Value) (instance, error) {
		in, err := reflection.Arguments(info, reflect.ValueOf(ctx), args, nil)
		if err != nil {
			return instance{}, err
		}

		results, err := reflection.Invoke(info, in)
		if err != nil {
			return instance{}, err
		}

		return form(results[0])
	}

	key := Key{ID: id, Signature: Signature{Type: target, Args: info.ParamTypes()}}
	return newRegistration[T](r.define(key, create, deleterBox(deleter), nil))
}

// RegisterInstance registers a definition whose creator returns a copy of v,
// ignoring the context.
func RegisterInstance[T any](r *Registry, id string, v T) (*Registration[T], error) {
	if r == nil {
		return nil, ErrRegistryNil
	}

	create := func(*Context, []reflect.Value) (instance, error) {
		p := new(T)
		*p = v
		return instance{ptr: p}, nil
	}

	key := Key{ID: id, Signature: Signature{Type: reflect.TypeFor[T]()}}
	return newRegistration[T](r.define(key, create, erased.Box{}, nil))
}

// RegisterDefaultInstance is RegisterInstance under DefaultID.
func RegisterDefaultInstance[T any](r *Registry, v T) (*Registration[T], error) {
	return RegisterInstance(r, DefaultID, v)
}

// DeriveAs registers D under the same id and arguments as reg. Its creator
// runs reg's creator and converts the result to D, by interface assertion or
// type conversion. When the runtime value is not convertible the activation
// silently yields the zero D; callers that cannot rule this out must check.
//
// The derived definition starts with a copy of reg's annotations. Interceptors
// and decorators registered for T do not run for D activations.
func DeriveAs[D, T any](reg *Registration[T]) (*Registration[D], error) {
	if reg == nil {
		return nil, ErrRegistrationNil
	}

	base := reg.handle.def
	target := reflect.TypeFor[D]()

	create := func(ctx *Context, args []reflect.Value) (instance, error) {
		inst, err := base.instantiate(ctx, args)
		if err != nil {
			return instance{}, err
		}

		owned, err := ownedFrom[T](inst)
		if err != nil {
			inst.release()
			return instance{}, err
		}

		d, ok := convertTo[D](owned.Value())
		if !ok {
			ctx.logger().Warn("derived activation produced a zero value",
				zap.Stringer("key", base.key),
				zap.String("derived", formatType(target)),
				zap.String("correlation_id", ctx.CorrelationID().String()),
			)
		}

		p := new(D)
		*p = d
		return newInstance(p, func(*D) { owned.Close() }), nil
	}

	key := Key{ID: base.key.ID, Signature: Signature{Type: target, Args: base.key.Signature.Args}}
	return newRegistration[D](reg.handle.registry.define(key, create, erased.Box{}, base.annotations, dependency{key: base.key}))
}

// DeriveWrapped registers W under the same id and arguments as reg. Its
// creator moves the T produced by reg's creator into wrap. A nil wrap
// converts T to W directly, which requires T to be convertible to W.
func DeriveWrapped[W, T any](reg *Registration[T], wrap func(T) W) (*Registration[W], error) {
	if reg == nil {
		return nil, ErrRegistrationNil
	}

	base := reg.handle.def
	target := reflect.TypeFor[W]()

	if wrap == nil {
		if !reflect.TypeFor[T]().ConvertibleTo(target) {
			return nil, RegistrationError{
				Type:      target,
				Operation: "derive",
				Cause: TypeMismatchError{
					Expected: target,
					Actual:   reflect.TypeFor[T](),
					Context:  "wrapper conversion",
				},
			}
		}
		wrap = func(v T) W {
			w, _ := convertTo[W](v)
			return w
		}
	}

	create := func(ctx *Context, args []reflect.Value) (instance, error) {
		inst, err := base.instantiate(ctx, args)
		if err != nil {
			return instance{}, err
		}

		owned, err := ownedFrom[T](inst)
		if err != nil {
			inst.release()
			return instance{}, err
		}

		w := wrap(owned.Take())
		return instance{ptr: &w}, nil
	}

	key := Key{ID: base.key.ID, Signature: Signature{Type: target, Args: base.key.Signature.Args}}
	return newRegistration[W](reg.handle.registry.define(key, create, erased.Box{}, base.annotations, dependency{key: base.key}))
}

// resultForm maps a creator's single result onto an instance of T.
func resultForm[T any](info *reflection.FuncInfo) (func(reflect.Value) (instance, error), error) {
	target := reflect.TypeFor[T]()

	if len(info.Results) != 1 {
		return nil, fmt.Errorf("%w: %v must return exactly one value besides an optional error", ErrInvalidCreator, info.Type)
	}

	out := info.Results[0]
	switch {
	case out == reflect.TypeFor[*Owned[T]]():
		return func(v reflect.Value) (instance, error) {
			if v.IsNil() {
				return instance{}, ErrNilInstance
			}
			ptr, deleter := v.Interface().(*Owned[T]).Release()
			if ptr == nil {
				return instance{}, ErrNilInstance
			}
			return newInstance(ptr, deleter), nil
		}, nil

	case out == reflect.PointerTo(target):
		return func(v reflect.Value) (instance, error) {
			if v.IsNil() {
				return instance{}, ErrNilInstance
			}
			return instance{ptr: v.Interface()}, nil
		}, nil

	case out.AssignableTo(target):
		return func(v reflect.Value) (instance, error) {
			p := new(T)
			reflect.ValueOf(p).Elem().Set(v)
			return instance{ptr: p}, nil
		}, nil
	}

	return nil, fmt.Errorf("%w: %v returns %v, which is not %v, *%v or *Owned[%v]",
		ErrInvalidCreator, info.Type, out, target, target, target)
}

func deleterBox[T any](deleter func(*T)) erased.Box {
	if deleter == nil {
		return erased.Box{}
	}
	return erased.New(deleter)
}

// convertTo converts v to D by assertion or, failing that, by type conversion.
func convertTo[D any](v any) (D, bool) {
	if d, ok := v.(D); ok {
		return d, true
	}

	var zero D
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return zero, false
	}

	dt := reflect.TypeFor[D]()
	if !rv.CanConvert(dt) {
		return zero, false
	}

	d, ok := rv.Convert(dt).Interface().(D)
	return d, ok
}
