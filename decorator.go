package activator

import (
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/junioryono/activator/internal/reflection"
)

// Decorate registers a decorator for every activation of T, whatever its id
// or argument signature. Decorators run in registration order after the
// interceptors; each one receives the current instance as an *Owned[T] and
// becomes responsible for it.
//
// The pointer fn returns replaces the instance and deleter replaces the
// active deleter, so a wrapper typically keeps inner and closes it from its
// own deleter. If fn hands back the pointer it was given, and still owns it,
// the inner deleter is kept unless deleter is non-nil. When fn fails, inner
// is closed unless fn released it.
//
// Value activation hands deleter a zeroed shell, so it must tolerate the zero
// T. In that case inner travels with the moved-out wrapper instead.
//
// Example:
//
//	activator.Decorate(r, func(ctx *activator.Context, inner *activator.Owned[Greeter]) (*Greeter, error) {
//	    var g Greeter = &loudGreeter{inner: inner}
//	    return &g, nil
//	}, func(g *Greeter) {
//	    if loud, ok := (*g).(*loudGreeter); ok {
//	        loud.inner.Close()
//	    }
//	})
func Decorate[T any](r *Registry, fn func(*Context, *Owned[T]) (*T, error), deleter func(*T)) error {
	target := reflect.TypeFor[T]()
	if r == nil {
		return ErrRegistryNil
	}

	if fn == nil {
		return RegistrationError{Type: target, Operation: "decorate", Cause: ErrInvalidDecorator}
	}

	apply := func(ctx *Context, inner instance) (instance, error) {
		owned, err := ownedFrom[T](inner)
		if err != nil {
			inner.release()
			return instance{}, err
		}

		var ptr *T
		err = protect(reflect.TypeOf(fn), func() error {
			var err error
			ptr, err = fn(ctx, owned)
			return err
		})
		if err != nil {
			owned.Close()
			return instance{}, err
		}

		if ptr == nil {
			owned.Close()
			return instance{}, ErrNilInstance
		}

		if ptr == owned.Get() {
			p, d := owned.Release()
			if deleter == nil {
				return newInstance(p, d), nil
			}
		}

		return newInstance(ptr, deleter), nil
	}

	return r.addDecorator(target, &decorator{apply: apply})
}

// DecorateValue registers a decorator that replaces the value in place. The
// instance keeps its current deleter.
func DecorateValue[T any](r *Registry, fn func(*Context, T) (T, error)) error {
	target := reflect.TypeFor[T]()
	if r == nil {
		return ErrRegistryNil
	}

	if fn == nil {
		return RegistrationError{Type: target, Operation: "decorate", Cause: ErrInvalidDecorator}
	}

	apply := func(ctx *Context, inner instance) (instance, error) {
		owned, err := ownedFrom[T](inner)
		if err != nil {
			inner.release()
			return instance{}, err
		}

		var v T
		err = protect(reflect.TypeOf(fn), func() error {
			var err error
			v, err = fn(ctx, owned.Value())
			return err
		})
		if err != nil {
			owned.Close()
			return instance{}, err
		}

		*owned.Get() = v
		return newInstance(owned.Release()), nil
	}

	return r.addDecorator(target, &decorator{apply: apply})
}

// Intercept registers an interceptor for T. fn has the form
//
//	func(*T, [*Context,] A1, ..., An) [error]
//
// and runs after every activation of T whose argument signature is
// (A1, ..., An), for every id, before the decorators. Interceptors run in
// registration order and may mutate the instance but not replace it.
func Intercept[T any](r *Registry, fn any) error {
	target := reflect.TypeFor[T]()
	if r == nil {
		return ErrRegistryNil
	}

	info, err := r.analyzer.AnalyzeWithTarget(fn, reflect.PointerTo(target))
	if err != nil {
		return RegistrationError{Type: target, Operation: "intercept", Cause: fmt.Errorf("%w: %w", ErrInvalidIntercept, err)}
	}

	if len(info.Results) != 0 || info.ParamObject {
		return RegistrationError{
			Type:      target,
			Operation: "intercept",
			Cause:     fmt.Errorf("%w: %v must return nothing or an error and take positional arguments", ErrInvalidIntercept, info.Type),
		}
	}

	return r.addInterceptor(Signature{Type: target, Args: info.ParamTypes()}, &interceptor{info: info})
}

// protect runs fn, converting a panic into a *reflection.PanicError.
func protect(fnType reflect.Type, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &reflection.PanicError{Func: fnType, Value: r, Stack: debug.Stack()}
		}
	}()

	return fn()
}
