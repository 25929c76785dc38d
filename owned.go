package activator

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/junioryono/activator/internal/erased"
)

// Owned is a uniquely owned activation result. The holder is responsible for
// calling Close, which routes destruction through the resolved deleter.
//
// An Owned is not safe for concurrent use.
type Owned[T any] struct {
	ptr     *T
	deleter func(*T)
}

// NewOwned wraps ptr with deleter. A nil deleter means default destruction,
// which in Go is leaving the value to the garbage collector.
func NewOwned[T any](ptr *T, deleter func(*T)) *Owned[T] {
	return &Owned[T]{ptr: ptr, deleter: deleter}
}

// Get returns the owned pointer, or nil once the instance has been closed,
// taken or released.
func (o *Owned[T]) Get() *T {
	if o == nil {
		return nil
	}
	return o.ptr
}

// Value returns a copy of the owned value without giving up ownership.
func (o *Owned[T]) Value() T {
	var zero T
	if o == nil || o.ptr == nil {
		return zero
	}
	return *o.ptr
}

// Take moves the value out: it copies the value, zeroes the shell, runs the
// deleter on the zeroed shell and returns the copy. The deleter sees only the
// zero value, so whatever the copy references is now owned by the caller.
func (o *Owned[T]) Take() T {
	var zero T
	if o == nil || o.ptr == nil {
		return zero
	}

	ptr, deleter := o.ptr, o.deleter
	o.ptr, o.deleter = nil, nil

	v := *ptr
	*ptr = zero
	if deleter != nil {
		deleter(ptr)
	}

	return v
}

// Release gives up ownership without destroying anything. The caller becomes
// responsible for calling the returned deleter, which may be nil.
func (o *Owned[T]) Release() (*T, func(*T)) {
	if o == nil {
		return nil, nil
	}

	ptr, deleter := o.ptr, o.deleter
	o.ptr, o.deleter = nil, nil
	return ptr, deleter
}

// Share converts the owned instance into a shared one with a reference count
// of one. The Owned is left empty.
func (o *Owned[T]) Share() *Shared[T] {
	ptr, deleter := o.Release()
	return newShared(ptr, deleter)
}

// Close destroys the instance through its deleter. It is safe to call more
// than once.
func (o *Owned[T]) Close() {
	ptr, deleter := o.Release()
	if ptr != nil && deleter != nil {
		deleter(ptr)
	}
}

// Shared is a reference counted handle. Each handle returned by Retain must
// be closed exactly once; the deleter runs when the last handle closes.
type Shared[T any] struct {
	state  *sharedState[T]
	closed atomic.Bool
}

type sharedState[T any] struct {
	ptr     *T
	deleter func(*T)
	refs    atomic.Int64
	once    sync.Once
}

func newShared[T any](ptr *T, deleter func(*T)) *Shared[T] {
	state := &sharedState[T]{ptr: ptr, deleter: deleter}
	state.refs.Store(1)
	return &Shared[T]{state: state}
}

// Get returns the shared pointer. It stays valid until the last handle closes.
func (s *Shared[T]) Get() *T {
	if s == nil || s.closed.Load() {
		return nil
	}
	return s.state.ptr
}

// Value returns a copy of the shared value.
func (s *Shared[T]) Value() T {
	var zero T
	if p := s.Get(); p != nil {
		return *p
	}
	return zero
}

// Retain returns a new handle to the same instance. It returns nil when s is
// closed or the instance has already been destroyed.
func (s *Shared[T]) Retain() *Shared[T] {
	if s == nil || s.closed.Load() {
		return nil
	}

	for {
		refs := s.state.refs.Load()
		if refs <= 0 {
			return nil
		}
		if s.state.refs.CompareAndSwap(refs, refs+1) {
			return &Shared[T]{state: s.state}
		}
	}
}

// RefCount returns the number of open handles.
func (s *Shared[T]) RefCount() int64 {
	if s == nil {
		return 0
	}
	return s.state.refs.Load()
}

// Close releases this handle. Closing a handle twice has no effect.
func (s *Shared[T]) Close() {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}

	if s.state.refs.Add(-1) == 0 {
		s.state.once.Do(func() {
			if s.state.ptr != nil && s.state.deleter != nil {
				s.state.deleter(s.state.ptr)
			}
		})
	}
}

// instance is the erased form that travels through the activation pipeline:
// a *T held as any, plus its current deleter boxed as func(*T).
type instance struct {
	ptr     any
	deleter erased.Box
}

// release destroys the instance through its current deleter.
func (i instance) release() {
	if i.ptr == nil || i.deleter.IsZero() || i.deleter.Raw() == nil {
		return
	}

	ptr := reflect.ValueOf(i.ptr)
	if ptr.Kind() == reflect.Pointer && ptr.IsNil() {
		return
	}
	reflect.ValueOf(i.deleter.Raw()).Call([]reflect.Value{ptr})
}

// newInstance erases a typed pointer and deleter.
func newInstance[T any](ptr *T, deleter func(*T)) instance {
	inst := instance{ptr: ptr}
	if deleter != nil {
		inst.deleter = erased.New(deleter)
	}
	return inst
}

// ownedFrom performs the checked retrieval of an erased instance as T.
func ownedFrom[T any](inst instance) (*Owned[T], error) {
	ptr, ok := inst.ptr.(*T)
	if !ok {
		return nil, TypeMismatchError{
			Expected: reflect.TypeFor[*T](),
			Actual:   reflect.TypeOf(inst.ptr),
			Context:  "instance",
		}
	}

	var deleter func(*T)
	if !inst.deleter.IsZero() {
		d, err := erased.Get[func(*T)](inst.deleter)
		if err != nil {
			return nil, mismatch(err, "deleter")
		}
		deleter = d
	}

	return NewOwned(ptr, deleter), nil
}
