package activator

import (
	"reflect"
	"runtime/debug"

	"github.com/junioryono/activator/internal/erased"
	"github.com/junioryono/activator/internal/reflection"
)

// Creator is the erased creator accepted by Registry.Define. It must return a
// pointer to the signature's target type; args match the signature's
// argument types in order.
type Creator func(ctx *Context, args []reflect.Value) (any, error)

// creatorFunc produces an instance together with any deleter the creator
// itself supplied.
type creatorFunc func(ctx *Context, args []reflect.Value) (instance, error)

// definition is an immutable recipe once the registry is frozen.
type definition struct {
	key          Key
	create       creatorFunc
	deleter      erased.Box
	annotations  *Annotations
	dependencies []dependency
}

// dependency is an input a definition declares at registration time. Only
// constructor registrations and derived definitions declare any.
type dependency struct {
	key      Key
	optional bool
}

// instantiate runs the creator, recovering panics, and applies the
// definition's deleter. A definition deleter takes precedence over one the
// creator returned through an Owned result.
func (d *definition) instantiate(ctx *Context, args []reflect.Value) (inst instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			inst = instance{}
			err = CreatorPanicError{Key: d.key, Panic: r, Stack: debug.Stack()}
		}
	}()

	inst, err = d.create(ctx, args)
	if err != nil {
		if p, ok := err.(*reflection.PanicError); ok {
			return instance{}, CreatorPanicError{Key: d.key, Panic: p.Value, Stack: p.Stack}
		}
		return instance{}, CreatorError{Key: d.key, Cause: err}
	}

	if inst.ptr == nil || reflect.ValueOf(inst.ptr).IsNil() {
		return instance{}, CreatorError{Key: d.key, Cause: ErrNilInstance}
	}

	if !d.deleter.IsZero() {
		inst.deleter = d.deleter
	}

	return inst, nil
}

// interceptor observes or mutates an instance after creation.
type interceptor struct {
	info *reflection.FuncInfo
}

func (ic *interceptor) invoke(ctx *Context, inst instance, args []reflect.Value) error {
	rest, err := reflection.Arguments(ic.info, reflect.ValueOf(ctx), args, nil)
	if err != nil {
		return err
	}

	in := append([]reflect.Value{reflect.ValueOf(inst.ptr)}, rest...)
	_, err = reflection.Invoke(ic.info, in)
	return err
}

// decorator consumes the current instance and produces its replacement.
type decorator struct {
	apply func(ctx *Context, inner instance) (instance, error)
}
