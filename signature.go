package activator

import (
	"fmt"
	"reflect"

	"github.com/junioryono/activator/internal/typecache"
)

// DefaultID is the reserved registration id used by the Default variants.
const DefaultID = ""

// Signature is a target type plus the ordered argument types its creator takes.
type Signature struct {
	Type reflect.Type
	Args []reflect.Type
}

// SignatureOf returns the signature of T with the given argument types.
func SignatureOf[T any](args ...reflect.Type) Signature {
	return Signature{Type: reflect.TypeFor[T](), Args: args}
}

// String renders the signature as Type(Arg1, Arg2).
func (s Signature) String() string {
	return typecache.Name(s.Type) + "(" + typecache.Names(s.Args) + ")"
}

// Equal reports whether both signatures name the same type and argument list.
func (s Signature) Equal(other Signature) bool {
	return s.key() == other.key()
}

func (s Signature) key() interceptorKey {
	return interceptorKey{typ: typecache.ID(s.Type), args: typecache.SignatureKey(s.Args)}
}

// Key is the registration key: at most one definition exists per Key.
type Key struct {
	ID        string
	Signature Signature
}

// String renders the key for diagnostics.
func (k Key) String() string {
	if k.ID == DefaultID {
		return k.Signature.String() + " [default]"
	}
	return fmt.Sprintf("%s [id %q]", k.Signature, k.ID)
}

func (k Key) key() definitionKey {
	return definitionKey{id: k.ID, sig: k.Signature.key()}
}

// definitionKey is the comparable form of Key.
type definitionKey struct {
	id  string
	sig interceptorKey
}

// interceptorKey is the comparable form of a Signature. Interceptors are
// looked up by it directly, so they apply to every id of the signature.
type interceptorKey struct {
	typ  uint32
	args string
}
