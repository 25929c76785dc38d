package typecache

import (
	"io"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type SimpleStruct struct {
	Name string
}

type InterfaceType interface {
	Method() string
}

type Generic[T any] struct {
	Value T
}

func TestGet(t *testing.T) {
	t.Run("nil type", func(t *testing.T) {
		assert.Nil(t, Get(nil))
		assert.Equal(t, uint32(0), ID(nil))
		assert.Equal(t, "<nil>", Name(nil))
	})

	t.Run("same type returns same info", func(t *testing.T) {
		typ := reflect.TypeFor[SimpleStruct]()

		a := Get(typ)
		b := Get(typ)
		require.NotNil(t, a)
		assert.Same(t, a, b)
		assert.Equal(t, reflect.Struct, a.Kind)
	})

	t.Run("distinct types get distinct ids", func(t *testing.T) {
		ids := map[uint32]reflect.Type{}
		for _, typ := range []reflect.Type{
			reflect.TypeFor[int](),
			reflect.TypeFor[string](),
			reflect.TypeFor[*SimpleStruct](),
			reflect.TypeFor[SimpleStruct](),
			reflect.TypeFor[InterfaceType](),
		} {
			id := ID(typ)
			assert.NotZero(t, id)
			_, dup := ids[id]
			assert.False(t, dup, "duplicate id for %v", typ)
			ids[id] = typ
		}
	})
}

func TestIDConcurrent(t *testing.T) {
	type local struct{ A, B int }
	typ := reflect.TypeFor[local]()

	var wg sync.WaitGroup
	results := make([]uint32, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ID(typ)
		}(i)
	}
	wg.Wait()

	for _, id := range results {
		assert.Equal(t, results[0], id)
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		name     string
		typ      reflect.Type
		expected string
	}{
		{"primitive", reflect.TypeFor[int](), "int"},
		{"struct", reflect.TypeFor[SimpleStruct](), "typecache.SimpleStruct"},
		{"pointer", reflect.TypeFor[*SimpleStruct](), "*typecache.SimpleStruct"},
		{"slice", reflect.TypeFor[[]string](), "[]string"},
		{"array", reflect.TypeFor[[2]int](), "[2]int"},
		{"map", reflect.TypeFor[map[string]*SimpleStruct](), "map[string]*typecache.SimpleStruct"},
		{"interface", reflect.TypeFor[io.Reader](), "io.Reader"},
		{"func", reflect.TypeFor[func(int) string](), "func(int) string"},
		{"generic", reflect.TypeFor[Generic[int]](), reflect.TypeFor[Generic[int]]().String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Name(tt.typ))
		})
	}
}

func TestSignatureKey(t *testing.T) {
	str := reflect.TypeFor[string]()
	num := reflect.TypeFor[int]()

	assert.Equal(t, "", SignatureKey(nil))
	assert.Equal(t, SignatureKey([]reflect.Type{str, num}), SignatureKey([]reflect.Type{str, num}))
	assert.NotEqual(t, SignatureKey([]reflect.Type{str, num}), SignatureKey([]reflect.Type{num, str}))
	assert.NotEqual(t, SignatureKey([]reflect.Type{str}), SignatureKey([]reflect.Type{str, str}))
	assert.Equal(t, "string, int", Names([]reflect.Type{str, num}))
}
