package activator

import (
	"fmt"
	"reflect"

	"github.com/junioryono/activator/internal/erased"
	"github.com/junioryono/activator/internal/reflection"
)

// Param selects the type and registration id a constructor parameter is
// activated from.
type Param struct {
	Type reflect.Type
	ID   string
}

// ParamOf returns a Param activating A under id.
func ParamOf[A any](id string) Param {
	return Param{Type: reflect.TypeFor[A](), ID: id}
}

// String renders the parameter as Type[id].
func (p Param) String() string {
	if p.ID == DefaultID {
		return formatType(p.Type)
	}
	return fmt.Sprintf("%s[%q]", formatType(p.Type), p.ID)
}

// RegisterType registers T under id with no arguments, built by constructor.
// Every constructor parameter is activated from its default registration in
// a child context. A constructor taking a single struct that embeds In gets
// each field activated instead; fields select an id with `id:"..."` (or dig's
// `name:"..."`) and may be marked `optional:"true"`.
//
// A nil constructor registers the zero value of T. Constructors with more
// parameters than the registry's MaxArity are rejected.
func RegisterType[T any](r *Registry, id string, constructor any) (*Registration[T], error) {
	if r == nil {
		return nil, ErrRegistryNil
	}

	target := reflect.TypeFor[T]()
	key := Key{ID: id, Signature: Signature{Type: target}}

	if constructor == nil {
		create := func(*Context, []reflect.Value) (instance, error) {
			return instance{ptr: new(T)}, nil
		}
		return newRegistration[T](r.define(key, create, erased.Box{}, nil))
	}

	info, err := r.analyzer.Analyze(constructor)
	if err != nil {
		return nil, RegistrationError{Type: target, Operation: "register type", Cause: fmt.Errorf("%w: %w", ErrInvalidCreator, err)}
	}

	arity := len(info.Params)
	if info.ParamObject {
		arity = len(info.Fields)
	}

	if arity > r.maxArity {
		return nil, RegistrationError{
			Type:      target,
			Operation: "register type",
			Cause:     fmt.Errorf("%w: %d > %d", ErrArityExceeded, arity, r.maxArity),
		}
	}

	var params []Param
	if !info.ParamObject {
		params = make([]Param, len(info.Params))
		for i, p := range info.Params {
			params[i] = Param{Type: p.Type}
		}
	}

	return registerConstructor[T](r, key, info, params)
}

// RegisterDefaultType is RegisterType under DefaultID.
func RegisterDefaultType[T any](r *Registry, constructor any) (*Registration[T], error) {
	return RegisterType[T](r, DefaultID, constructor)
}

// RegisterExplicit registers T under id with no arguments, built by
// constructor whose parameters are activated as described by params, one per
// parameter in order. Each Param type must be assignable to the constructor
// parameter it feeds.
//
// Example:
//
//	activator.RegisterExplicit[Server](r, "", NewServer,
//	    activator.ParamOf[*Config]("prod"),
//	    activator.ParamOf[Logger](activator.DefaultID),
//	)
func RegisterExplicit[T any](r *Registry, id string, constructor any, params ...Param) (*Registration[T], error) {
	if r == nil {
		return nil, ErrRegistryNil
	}

	target := reflect.TypeFor[T]()
	fail := func(err error) (*Registration[T], error) {
		return nil, RegistrationError{Type: target, Operation: "register explicit", Cause: err}
	}

	if constructor == nil {
		return fail(ErrCreatorNil)
	}

	info, err := r.analyzer.Analyze(constructor)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrInvalidCreator, err))
	}

	if info.ParamObject {
		return fail(fmt.Errorf("%w: parameter objects carry their own ids, use RegisterType", ErrInvalidCreator))
	}

	if len(params) != len(info.Params) {
		return fail(fmt.Errorf("%w: %v takes %d parameters, %d given", ErrArityMismatch, info.Type, len(info.Params), len(params)))
	}

	if len(params) > r.maxArity {
		return fail(fmt.Errorf("%w: %d > %d", ErrArityExceeded, len(params), r.maxArity))
	}

	for i, p := range params {
		if p.Type == nil {
			return fail(fmt.Errorf("%w: parameter %d has no type", ErrInvalidCreator, i))
		}

		if !p.Type.AssignableTo(info.Params[i].Type) {
			return fail(TypeMismatchError{
				Expected: info.Params[i].Type,
				Actual:   p.Type,
				Context:  fmt.Sprintf("parameter %d", i),
			})
		}
	}

	key := Key{ID: id, Signature: Signature{Type: target}}
	return registerConstructor[T](r, key, info, params)
}

func registerConstructor[T any](r *Registry, key Key, info *reflection.FuncInfo, params []Param) (*Registration[T], error) {
	form, err := resultForm[T](info)
	if err != nil {
		return nil, RegistrationError{Type: key.Signature.Type, Operation: "register type", Cause: err}
	}

	create := func(ctx *Context, _ []reflect.Value) (instance, error) {
		positional := make([]reflect.Value, len(params))
		for i, p := range params {
			v, err := ctx.activateDependency(p.Type, p.ID, fmt.Sprintf("parameter %d of %s", i, key.Signature))
			if err != nil {
				return instance{}, err
			}
			positional[i] = v
		}

		in, err := reflection.Arguments(info, reflect.ValueOf(ctx), positional, dependencyResolver{ctx: ctx})
		if err != nil {
			return instance{}, err
		}

		results, err := reflection.Invoke(info, in)
		if err != nil {
			return instance{}, err
		}

		return form(results[0])
	}

	var deps []dependency
	if info.ParamObject {
		for _, f := range info.Fields {
			deps = append(deps, dependency{key: Key{ID: f.ID, Signature: Signature{Type: f.Type}}, optional: f.Optional})
		}
	} else {
		for _, p := range params {
			deps = append(deps, dependency{key: Key{ID: p.ID, Signature: Signature{Type: p.Type}}})
		}
	}

	return newRegistration[T](r.define(key, create, erased.Box{}, nil, deps...))
}

// dependencyResolver feeds In parameter objects from child activations.
type dependencyResolver struct {
	ctx *Context
}

func (d dependencyResolver) Has(t reflect.Type, id string) bool {
	return d.ctx.activator.registry.Has(id, Signature{Type: t})
}

func (d dependencyResolver) Resolve(t reflect.Type, id string) (reflect.Value, error) {
	return d.ctx.activateDependency(t, id, "field "+formatType(t))
}
