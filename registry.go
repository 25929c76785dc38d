package activator

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/junioryono/activator/internal/erased"
	"github.com/junioryono/activator/internal/reflection"
	"github.com/junioryono/activator/internal/typecache"
)

var contextType = reflect.TypeFor[*Context]()

// Registry accumulates definitions, interceptors and decorators during the
// build phase. Build freezes it; from then on it is read without locking and
// every further registration fails with ErrRegistryFrozen.
//
// Registration performs no cross-validation: a dependency a creator asks for
// is only looked up when the creator runs. Validate checks the dependencies
// constructors declare up front.
type Registry struct {
	mu sync.Mutex

	definitions  map[definitionKey]*definition
	order        []Key
	interceptors map[interceptorKey][]*interceptor
	decorators   map[uint32][]*decorator
	modules      []Module

	frozen   atomic.Bool
	maxArity int
	analyzer *reflection.Analyzer
}

// NewRegistry creates an empty, writable registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	ro := registryOptions{maxArity: DefaultMaxArity}
	for _, opt := range opts {
		if opt != nil {
			opt.applyRegistryOption(&ro)
		}
	}

	return &Registry{
		definitions:  make(map[definitionKey]*definition),
		interceptors: make(map[interceptorKey][]*interceptor),
		decorators:   make(map[uint32][]*decorator),
		maxArity:     ro.maxArity,
		analyzer:     reflection.New(contextType),
	}
}

// MaxArity returns the largest constructor arity RegisterType accepts.
func (r *Registry) MaxArity() int {
	return r.maxArity
}

// Frozen reports whether Build has been called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Define registers an erased creator under id and sig. deleter may be nil or a
// func(*T) where T is sig.Type.
func (r *Registry) Define(id string, sig Signature, create Creator, deleter any) (*Handle, error) {
	if sig.Type == nil {
		return nil, RegistrationError{Operation: "define", Cause: fmt.Errorf("signature type cannot be nil")}
	}

	if create == nil {
		return nil, RegistrationError{Type: sig.Type, Operation: "define", Cause: ErrCreatorNil}
	}

	ptrType := reflect.PointerTo(sig.Type)
	deleterType := reflect.FuncOf([]reflect.Type{ptrType}, nil, false)

	var box erased.Box
	if deleter != nil {
		if reflect.TypeOf(deleter) != deleterType {
			return nil, RegistrationError{
				Type:      sig.Type,
				Operation: "define",
				Cause:     TypeMismatchError{Expected: deleterType, Actual: reflect.TypeOf(deleter), Context: "deleter"},
			}
		}
		box = erased.Of(deleterType, deleter)
	}

	key := Key{ID: id, Signature: sig}
	erasedCreate := func(ctx *Context, args []reflect.Value) (instance, error) {
		v, err := create(ctx, args)
		if err != nil {
			return instance{}, err
		}

		if v == nil {
			return instance{}, ErrNilInstance
		}

		if reflect.TypeOf(v) != ptrType {
			return instance{}, TypeMismatchError{Expected: ptrType, Actual: reflect.TypeOf(v), Context: "instance"}
		}

		return instance{ptr: v}, nil
	}

	return r.define(key, erasedCreate, box, nil)
}

// define is the single entry point that inserts a definition.
func (r *Registry) define(key Key, create creatorFunc, deleter erased.Box, annotations *Annotations, deps ...dependency) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return nil, RegistrationError{Type: key.Signature.Type, Operation: "register", Cause: ErrRegistryFrozen}
	}

	k := key.key()
	if _, exists := r.definitions[k]; exists {
		return nil, RegistrationError{
			Type:      key.Signature.Type,
			Operation: "register",
			Cause:     DuplicateDefinitionError{Key: key},
		}
	}

	def := &definition{
		key:          key,
		create:       create,
		deleter:      deleter,
		annotations:  annotations.Clone(),
		dependencies: deps,
	}

	r.definitions[k] = def
	r.order = append(r.order, key)

	return &Handle{registry: r, def: def}, nil
}

func (r *Registry) addInterceptor(sig Signature, ic *interceptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return RegistrationError{Type: sig.Type, Operation: "intercept", Cause: ErrRegistryFrozen}
	}

	k := sig.key()
	r.interceptors[k] = append(r.interceptors[k], ic)
	return nil
}

func (r *Registry) addDecorator(t reflect.Type, d *decorator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return RegistrationError{Type: t, Operation: "decorate", Cause: ErrRegistryFrozen}
	}

	k := typecache.ID(t)
	r.decorators[k] = append(r.decorators[k], d)
	return nil
}

// Has reports whether a definition exists for id and sig.
func (r *Registry) Has(id string, sig Signature) bool {
	_, ok := r.lookup(id, sig)
	return ok
}

// Keys returns every registered key in registration order.
func (r *Registry) Keys() []Key {
	if r.frozen.Load() {
		return slices.Clone(r.order)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// lookup, interceptorsFor and decoratorsFor skip the lock once frozen, since
// the maps no longer change.
func (r *Registry) lookup(id string, sig Signature) (*definition, bool) {
	k := Key{ID: id, Signature: sig}.key()

	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}

	def, ok := r.definitions[k]
	return def, ok
}

func (r *Registry) interceptorsFor(sig Signature) []*interceptor {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	return r.interceptors[sig.key()]
}

func (r *Registry) decoratorsFor(t reflect.Type) []*decorator {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	return r.decorators[typecache.ID(t)]
}

// Build freezes the registry and returns an Activator over it. Build may be
// called more than once; all activators share the frozen definitions.
func (r *Registry) Build(opts ...Option) (*Activator, error) {
	r.mu.Lock()
	r.frozen.Store(true)
	r.mu.Unlock()

	return newActivator(r, opts...)
}

// Handle is the untyped result of a registration. It lets callers attach
// annotations to the definition while the registry is still writable.
type Handle struct {
	registry *Registry
	def      *definition
	err      error
}

// ID returns the registration id.
func (h *Handle) ID() string {
	return h.def.key.ID
}

// Key returns the registration key.
func (h *Handle) Key() Key {
	return h.def.key
}

// Err returns the first error recorded by a chained call.
func (h *Handle) Err() error {
	return h.err
}

// Annotate adds values to the definition's annotation set, each stored under
// its dynamic type. A value of a type already present replaces it.
func (h *Handle) Annotate(values ...any) *Handle {
	return h.annotate(func(a *Annotations) {
		for _, v := range values {
			a.Set(v)
		}
	})
}

// AnnotateTagged stores v under its dynamic type and tag.
func (h *Handle) AnnotateTagged(tag int, v any) *Handle {
	return h.annotate(func(a *Annotations) {
		a.SetTagged(tag, v)
	})
}

func (h *Handle) annotate(fn func(*Annotations)) *Handle {
	if h.err != nil {
		return h
	}

	r := h.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		h.err = RegistrationError{Type: h.def.key.Signature.Type, Operation: "annotate", Cause: ErrRegistryFrozen}
		return h
	}

	fn(h.def.annotations)
	return h
}
