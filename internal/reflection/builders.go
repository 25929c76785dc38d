package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
)

// Resolver supplies values for In parameter object fields.
type Resolver interface {
	// Has reports whether a value of type t can be produced for id.
	Has(t reflect.Type, id string) bool
	Resolve(t reflect.Type, id string) (reflect.Value, error)
}

// PanicError is returned by Call when the function panicked.
type PanicError struct {
	Func  reflect.Type
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v panicked: %v", e.Func, e.Value)
}

// Unwrap exposes a panic value that was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// BuildParamObject creates and populates an In struct of type paramType.
// Optional fields the resolver cannot produce keep their zero value.
func BuildParamObject(paramType reflect.Type, fields []Field, resolver Resolver) (reflect.Value, error) {
	if resolver == nil {
		return reflect.Value{}, errors.New("resolver cannot be nil")
	}

	if paramType == nil {
		return reflect.Value{}, errors.New("paramType cannot be nil")
	}

	structType := paramType
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	if structType.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w, got %v", ErrNotParamStruct, structType.Kind())
	}

	structPtr := reflect.New(structType)
	structValue := structPtr.Elem()

	for _, field := range fields {
		if field.Optional && !resolver.Has(field.Type, field.ID) {
			continue
		}

		value, err := resolver.Resolve(field.Type, field.ID)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("failed to resolve field %s: %w", field.Name, err)
		}

		target := structValue.Field(field.Index)
		if target.CanSet() && value.IsValid() {
			target.Set(value)
		}
	}

	if paramType.Kind() == reflect.Pointer {
		return structPtr, nil
	}
	return structValue, nil
}

// Call invokes fn with args, converting a panic into a *PanicError.
func Call(fn reflect.Value, args []reflect.Value) (results []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = &PanicError{Func: fn.Type(), Value: r, Stack: debug.Stack()}
		}
	}()

	return fn.Call(args), nil
}

// Invoke calls the analyzed function and splits off its trailing error.
// The returned results exclude the error value.
func Invoke(info *FuncInfo, args []reflect.Value) ([]reflect.Value, error) {
	results, err := Call(info.Value, args)
	if err != nil {
		return nil, err
	}

	if info.HasErrorReturn {
		last := results[len(results)-1]
		results = results[:len(results)-1]
		if !last.IsNil() {
			return results, last.Interface().(error)
		}
	}

	return results, nil
}

// Arguments assembles the argument list for info that follows the target:
// the context value when the function takes one, then either the built
// parameter object or the positional values. Callers using a target prepend
// it themselves.
func Arguments(info *FuncInfo, ctx reflect.Value, positional []reflect.Value, resolver Resolver) ([]reflect.Value, error) {
	args := make([]reflect.Value, 0, len(info.Params)+2)
	if info.TakesContext {
		args = append(args, ctx)
	}

	if info.ParamObject {
		obj, err := BuildParamObject(info.Params[0].Type, info.Fields, resolver)
		if err != nil {
			return nil, err
		}
		return append(args, obj), nil
	}

	if len(positional) != len(info.Params) {
		return nil, fmt.Errorf("%v expects %d arguments, got %d", info.Type, len(info.Params), len(positional))
	}

	for i, p := range info.Params {
		v := positional[i]
		if !v.IsValid() {
			v = reflect.Zero(p.Type)
		} else if v.Type() != p.Type {
			if !v.Type().AssignableTo(p.Type) {
				return nil, fmt.Errorf("argument %d: %v is not assignable to %v", i, v.Type(), p.Type)
			}
			converted := reflect.New(p.Type).Elem()
			converted.Set(v)
			v = converted
		}
		args = append(args, v)
	}

	return args, nil
}
