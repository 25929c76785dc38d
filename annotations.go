package activator

import (
	"reflect"

	"github.com/junioryono/activator/internal/erased"
)

type annotationKey struct {
	typ reflect.Type
	tag int
}

// Annotations holds at most one value per annotation type and tag. Tag 0 is
// the untagged slot. A nil *Annotations reads as an empty set.
//
// Annotations are not safe for concurrent mutation; a set belongs to the
// activation call stack that created it.
type Annotations struct {
	values map[annotationKey]erased.Box
}

// NewAnnotations returns a set holding values, each stored under its dynamic
// type. Later values of the same type overwrite earlier ones.
func NewAnnotations(values ...any) *Annotations {
	a := &Annotations{values: make(map[annotationKey]erased.Box, len(values))}
	for _, v := range values {
		a.Set(v)
	}
	return a
}

// Set stores v under its dynamic type, overwriting any previous value.
// A nil v is ignored.
func (a *Annotations) Set(v any) *Annotations {
	return a.SetTagged(0, v)
}

// SetTagged stores v under its dynamic type and tag.
func (a *Annotations) SetTagged(tag int, v any) *Annotations {
	if v == nil {
		return a
	}

	t := reflect.TypeOf(v)
	a.put(annotationKey{typ: t, tag: tag}, erased.Of(t, v))
	return a
}

func (a *Annotations) put(k annotationKey, b erased.Box) {
	if a.values == nil {
		a.values = make(map[annotationKey]erased.Box)
	}
	a.values[k] = b
}

// Merge copies every entry of other whose key is absent from a. Existing
// entries are never overwritten, so the receiver's values win on conflict.
func (a *Annotations) Merge(other *Annotations) *Annotations {
	if other == nil {
		return a
	}

	for k, v := range other.values {
		if _, ok := a.values[k]; ok {
			continue
		}
		a.put(k, v)
	}

	return a
}

// Clone returns an independent copy of the set.
func (a *Annotations) Clone() *Annotations {
	c := &Annotations{values: make(map[annotationKey]erased.Box, a.Len())}
	if a != nil {
		for k, v := range a.values {
			c.values[k] = v
		}
	}
	return c
}

// Len returns the number of stored annotations.
func (a *Annotations) Len() int {
	if a == nil {
		return 0
	}
	return len(a.values)
}

func (a *Annotations) get(k annotationKey) (erased.Box, bool) {
	if a == nil {
		return erased.Box{}, false
	}
	b, ok := a.values[k]
	return b, ok
}

// Annotate stores v under the static type A. Use it to store an annotation
// under an interface type.
func Annotate[A any](a *Annotations, v A) *Annotations {
	return AnnotateTagged(a, 0, v)
}

// AnnotateTagged stores v under the static type A and tag.
func AnnotateTagged[A any](a *Annotations, tag int, v A) *Annotations {
	a.put(annotationKey{typ: reflect.TypeFor[A](), tag: tag}, erased.New(v))
	return a
}

// Lookup returns the untagged annotation of type A.
func Lookup[A any](a *Annotations) (A, error) {
	return LookupTagged[A](a, 0)
}

// LookupTagged returns the annotation of type A stored under tag.
func LookupTagged[A any](a *Annotations, tag int) (A, error) {
	t := reflect.TypeFor[A]()

	b, ok := a.get(annotationKey{typ: t, tag: tag})
	if !ok {
		var zero A
		return zero, AnnotationNotFoundError{Type: t, Tag: tag}
	}

	v, err := erased.Get[A](b)
	if err != nil {
		return v, mismatch(err, "annotation")
	}
	return v, nil
}

// Contains reports whether an untagged annotation of type A is present.
func Contains[A any](a *Annotations) bool {
	return ContainsTagged[A](a, 0)
}

// ContainsTagged reports whether an annotation of type A is present under tag.
func ContainsTagged[A any](a *Annotations, tag int) bool {
	_, ok := a.get(annotationKey{typ: reflect.TypeFor[A](), tag: tag})
	return ok
}
