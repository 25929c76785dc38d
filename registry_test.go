package activator_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/junioryono/activator"
	"github.com/junioryono/activator/internal/testutil"
)

func TestRegistry_Uniqueness(t *testing.T) {
	r := activator.NewRegistry()

	newWidget := func() testutil.Widget { return testutil.Widget{} }
	named := func(name string) testutil.Widget { return testutil.Widget{Name: name} }

	_, err := activator.RegisterDefault[testutil.Widget](r, newWidget)
	require.NoError(t, err)

	_, err = activator.RegisterDefault[testutil.Widget](r, newWidget)
	testutil.AssertDuplicate(t, err)

	var dup activator.DuplicateDefinitionError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, activator.DefaultID, dup.Key.ID)
	assert.Contains(t, err.Error(), "testutil.Widget() [default] is already registered")

	_, err = activator.RegisterDefault[testutil.Widget](r, named)
	require.NoError(t, err, "distinct argument signature")

	_, err = activator.Register[testutil.Widget](r, "other", newWidget)
	require.NoError(t, err, "distinct id")

	_, err = activator.RegisterInstance(r, "other", testutil.Widget{})
	testutil.AssertDuplicate(t, err)

	assert.Len(t, r.Keys(), 3, "failed registrations leave the registry unchanged")

	a, err := r.Build()
	require.NoError(t, err)

	for _, k := range a.Keys() {
		assert.True(t, a.Registry().Has(k.ID, k.Signature), k.String())
	}

	testutil.AssertActivatable[testutil.Widget](t, a, activator.DefaultID)
	testutil.AssertActivatable[testutil.Widget](t, a, activator.DefaultID, "n")
	testutil.AssertActivatable[testutil.Widget](t, a, "other")
}

func TestRegistry_UniquenessProperty(t *testing.T) {
	argTypes := []reflect.Type{reflect.TypeFor[string](), reflect.TypeFor[int](), reflect.TypeFor[bool]()}

	rapid.Check(t, func(t *rapid.T) {
		r := activator.NewRegistry()
		seen := map[string]bool{}

		n := rapid.IntRange(1, 30).Draw(t, "n")
		for i := range n {
			id := rapid.SampledFrom([]string{"", "a", "b"}).Draw(t, fmt.Sprintf("id%d", i))
			arity := rapid.IntRange(0, 2).Draw(t, fmt.Sprintf("arity%d", i))
			args := make([]reflect.Type, arity)
			for j := range args {
				args[j] = rapid.SampledFrom(argTypes).Draw(t, fmt.Sprintf("arg%d_%d", i, j))
			}

			sig := activator.Signature{Type: reflect.TypeFor[testutil.Widget](), Args: args}
			key := activator.Key{ID: id, Signature: sig}.String()

			_, err := r.Define(id, sig, func(*activator.Context, []reflect.Value) (any, error) {
				return &testutil.Widget{}, nil
			}, nil)

			if seen[key] {
				if !activator.IsDuplicate(err) {
					t.Fatalf("%s registered twice without a duplicate error: %v", key, err)
				}
				continue
			}

			if err != nil {
				t.Fatalf("%s: unexpected error %v", key, err)
			}
			seen[key] = true
		}

		if len(r.Keys()) != len(seen) {
			t.Fatalf("registry holds %d keys, expected %d", len(r.Keys()), len(seen))
		}
	})
}

func TestRegistry_Define(t *testing.T) {
	counter := testutil.NewDestroyCounter()
	r := activator.NewRegistry()
	sig := activator.SignatureOf[testutil.Widget](reflect.TypeFor[string]())

	h, err := r.Define("erased", sig, func(ctx *activator.Context, args []reflect.Value) (any, error) {
		return &testutil.Widget{Name: args[0].String()}, nil
	}, testutil.Deleter[testutil.Widget](counter, "erased"))
	require.NoError(t, err)
	assert.Equal(t, "erased", h.ID())
	assert.True(t, h.Key().Signature.Equal(sig))

	_, err = r.Define("wrong", activator.SignatureOf[testutil.Widget](), func(*activator.Context, []reflect.Value) (any, error) {
		return testutil.Widget{}, nil
	}, nil)
	require.NoError(t, err)

	_, err = r.Define("bad deleter", sig, func(*activator.Context, []reflect.Value) (any, error) {
		return nil, nil
	}, func(*string) {})
	assert.ErrorIs(t, err, activator.ErrTypeMismatch)

	_, err = r.Define("nil creator", sig, nil, nil)
	assert.ErrorIs(t, err, activator.ErrCreatorNil)

	_, err = r.Define("no type", activator.Signature{}, func(*activator.Context, []reflect.Value) (any, error) { return nil, nil }, nil)
	assert.Error(t, err)

	a, err := r.Build()
	require.NoError(t, err)

	w, err := activator.ActivateValue[testutil.Widget](a, "erased", "from args")
	require.NoError(t, err)
	assert.Equal(t, "from args", w.Name)
	testutil.AssertClosedOnce(t, counter, "erased")

	_, err = activator.ActivateValue[testutil.Widget](a, "wrong")
	assert.ErrorIs(t, err, activator.ErrTypeMismatch, "creator must return *T")
}

func TestRegistry_Frozen(t *testing.T) {
	r := activator.NewRegistry()
	reg, err := activator.RegisterDefault[testutil.Widget](r, func() testutil.Widget { return testutil.Widget{} })
	require.NoError(t, err)

	assert.False(t, r.Frozen())
	_, err = r.Build()
	require.NoError(t, err)
	assert.True(t, r.Frozen())

	_, err = activator.Register[testutil.Widget](r, "late", func() testutil.Widget { return testutil.Widget{} })
	require.Error(t, err)
	assert.ErrorIs(t, err, activator.ErrRegistryFrozen)

	require.ErrorIs(t, reg.Annotate(X(1)).Err(), activator.ErrRegistryFrozen)
	assert.ErrorIs(t, reg.AnnotateTagged(1, X(2)).Err(), activator.ErrRegistryFrozen, "errors are sticky")

	// A second build over the same frozen registry is allowed.
	b, err := r.Build()
	require.NoError(t, err)
	testutil.AssertActivatable[testutil.Widget](t, b, activator.DefaultID)
}

func TestRegistry_NilArguments(t *testing.T) {
	_, err := activator.Register[testutil.Widget](nil, "", func() testutil.Widget { return testutil.Widget{} })
	assert.ErrorIs(t, err, activator.ErrRegistryNil)

	_, err = activator.Register[testutil.Widget](activator.NewRegistry(), "", nil)
	assert.ErrorIs(t, err, activator.ErrCreatorNil)

	_, err = activator.RegisterInstance(nil, "", 1)
	assert.ErrorIs(t, err, activator.ErrRegistryNil)

	_, err = activator.DeriveAs[testutil.Greeter, testutil.Widget](nil)
	assert.ErrorIs(t, err, activator.ErrRegistrationNil)
}

func TestSignature_String(t *testing.T) {
	tests := []struct {
		name string
		key  activator.Key
		want string
	}{
		{
			name: "default no args",
			key:  activator.Key{Signature: activator.SignatureOf[testutil.Widget]()},
			want: "testutil.Widget() [default]",
		},
		{
			name: "id with args",
			key: activator.Key{
				ID:        "alt",
				Signature: activator.SignatureOf[*testutil.Widget](reflect.TypeFor[string](), reflect.TypeFor[[]int]()),
			},
			want: `*testutil.Widget(string, []int) [id "alt"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.String())
		})
	}

	assert.True(t, activator.SignatureOf[int]().Equal(activator.Signature{Type: reflect.TypeFor[int]()}))
	assert.False(t, activator.SignatureOf[int]().Equal(activator.SignatureOf[int](reflect.TypeFor[int]())))
}
