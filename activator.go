package activator

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/junioryono/activator/internal/typecache"
)

const tracerName = "github.com/junioryono/activator"

// Activator resolves activations against a frozen Registry. It never retains
// the instances it creates: each result is handed to exactly one owner.
//
// An Activator is safe for concurrent use; each activation owns its own
// Context tree.
type Activator struct {
	id       string
	registry *Registry
	opts     options
	tracer   trace.Tracer
	metrics  *metrics
}

func newActivator(r *Registry, opts ...Option) (*Activator, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt.applyOption(&o)
		}
	}

	if o.checkGraph {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	a := &Activator{
		id:       uuid.NewString(),
		registry: r,
		opts:     o,
		tracer:   noop.NewTracerProvider().Tracer(tracerName),
	}

	if o.tracerProvider != nil {
		a.tracer = o.tracerProvider.Tracer(tracerName)
	}

	if o.registerer != nil {
		m, err := newMetrics(o.registerer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		a.metrics = m
	}

	o.logger.Debug("activator built",
		zap.String("activator_id", a.id),
		zap.Int("definitions", len(r.order)),
		zap.Bool("trace", o.trace),
	)

	return a, nil
}

// ID returns the unique identifier of this activator.
func (a *Activator) ID() string {
	return a.id
}

// Registry returns the frozen registry.
func (a *Activator) Registry() *Registry {
	return a.registry
}

// Keys returns every registered key in registration order.
func (a *Activator) Keys() []Key {
	return a.registry.Keys()
}

// Tracing reports whether WithTrace was enabled.
func (a *Activator) Tracing() bool {
	return a.opts.trace
}

// ActivateType activates t under id and returns it by value. When parent is
// not nil the activation runs in a child of parent.
func (a *Activator) ActivateType(parent *Context, t reflect.Type, id string, args ...any) (reflect.Value, error) {
	if t == nil {
		return reflect.Value{}, fmt.Errorf("activate: type cannot be nil")
	}

	values, types, err := toArgs(args)
	if err != nil {
		return reflect.Value{}, err
	}

	var ctx *Context
	if parent != nil {
		ctx = parent.child(id, "")
	} else {
		ctx = NewContext(a, id, nil)
	}

	return a.activateValue(ctx, Signature{Type: t, Args: types}, values)
}

// activate runs the pipeline for T with caller-supplied arguments.
func (a *Activator) activate(ctx *Context, t reflect.Type, args []any) (instance, error) {
	if ctx.consumed {
		return instance{}, ErrActivationConsumed
	}

	values, types, err := toArgs(args)
	if err != nil {
		return instance{}, err
	}

	return a.allocate(ctx, Signature{Type: t, Args: types}, values)
}

// activateValue activates and moves the value out, destroying the shell. The
// active deleter receives the zeroed shell, never the moved-out value.
func (a *Activator) activateValue(ctx *Context, sig Signature, args []reflect.Value) (reflect.Value, error) {
	inst, err := a.allocate(ctx, sig, args)
	if err != nil {
		return reflect.Value{}, err
	}

	shell := reflect.ValueOf(inst.ptr).Elem()
	v := reflect.New(sig.Type).Elem()
	v.Set(shell)
	shell.SetZero()
	inst.release()

	return v, nil
}

// allocate is the resolution pipeline: lookup, annotation merge, creation,
// interception, validation and decoration. On any failure after creation the
// instance is released through its current deleter.
func (a *Activator) allocate(ctx *Context, sig Signature, args []reflect.Value) (inst instance, err error) {
	start := time.Now()
	ctx.signature = sig
	ctx.consumed = true

	spanCtx, span := a.tracer.Start(ctx.ctx, "activator.activate", trace.WithAttributes(
		attribute.String("activator.signature", sig.String()),
		attribute.String("activator.id", ctx.id),
		attribute.String("activator.correlation_id", ctx.correlationID.String()),
		attribute.Int("activator.depth", ctx.Depth()),
	))
	ctx.ctx = spanCtx

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		a.metrics.observe(typecache.Name(sig.Type), start, err)
		a.log(ctx, sig, start, err)
	}()

	def, ok := a.registry.lookup(ctx.id, sig)
	if !ok {
		return instance{}, a.unresolved(ctx.id, sig)
	}

	ctx.annotations.Merge(def.annotations)

	inst, err = def.instantiate(ctx, args)
	if err != nil {
		return instance{}, err
	}

	for i, ic := range a.registry.interceptorsFor(sig) {
		if icErr := ic.invoke(ctx, inst, args); icErr != nil {
			inst.release()
			return instance{}, InterceptorError{Signature: sig, Index: i, Cause: icErr}
		}
	}

	if vErr := a.validate(sig.Type, inst); vErr != nil {
		inst.release()
		return instance{}, vErr
	}

	for i, d := range a.registry.decoratorsFor(sig.Type) {
		next, dErr := d.apply(ctx, inst)
		if dErr != nil {
			return instance{}, DecoratorError{Type: sig.Type, Index: i, Cause: dErr}
		}
		inst = next
	}

	return inst, nil
}

func (a *Activator) unresolved(id string, sig Signature) error {
	err := UnresolvedDependencyError{Type: sig.Type, ID: id, Args: sig.Args}
	if a.opts.trace {
		err.Known = a.registry.Keys()
	}
	return err
}

// validate runs the configured validator on struct instances, or on the
// struct a pointer instance points to.
func (a *Activator) validate(t reflect.Type, inst instance) error {
	if a.opts.validate == nil {
		return nil
	}

	target := inst.ptr
	v := reflect.ValueOf(inst.ptr).Elem()

	switch {
	case v.Kind() == reflect.Struct:
	case v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Struct:
		target = v.Interface()
	default:
		return nil
	}

	if err := a.opts.validate.Struct(target); err != nil {
		return ValidationError{Type: t, Cause: err}
	}
	return nil
}

func (a *Activator) log(ctx *Context, sig Signature, start time.Time, err error) {
	logger := a.opts.logger

	if err != nil {
		if ce := logger.Check(zap.DebugLevel, "activation failed"); ce != nil {
			ce.Write(
				zap.String("signature", sig.String()),
				zap.String("id", ctx.id),
				zap.String("correlation_id", ctx.correlationID.String()),
				zap.Int("depth", ctx.Depth()),
				zap.Error(err),
			)
		}
		return
	}

	if !a.opts.trace {
		return
	}

	if ce := logger.Check(zap.DebugLevel, "activated"); ce != nil {
		ce.Write(
			zap.String("signature", sig.String()),
			zap.String("id", ctx.id),
			zap.String("correlation_id", ctx.correlationID.String()),
			zap.Stringer("context", ctx),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// typedArg pins an argument to a static type.
type typedArg struct {
	value reflect.Value
}

// Arg pins v to the static type A, so that an interface value matches a
// signature declared with the interface type rather than its dynamic type.
// It is also the only way to pass a nil interface or pointer.
func Arg[A any](v A) any {
	return typedArg{value: reflect.ValueOf(&v).Elem()}
}

func toArgs(args []any) ([]reflect.Value, []reflect.Type, error) {
	if len(args) == 0 {
		return nil, nil, nil
	}

	values := make([]reflect.Value, len(args))
	types := make([]reflect.Type, len(args))

	for i, arg := range args {
		switch x := arg.(type) {
		case nil:
			return nil, nil, fmt.Errorf("argument %d: %w", i, ErrNilArgument)
		case typedArg:
			values[i] = x.value
		default:
			values[i] = reflect.ValueOf(arg)
		}
		types[i] = values[i].Type()
	}

	return values, types, nil
}
