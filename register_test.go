package activator_test

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/junioryono/activator"
	"github.com/junioryono/activator/internal/testutil"
)

func TestRegister_CreatorForms(t *testing.T) {
	counter := testutil.NewDestroyCounter()

	tests := []struct {
		name    string
		creator any
	}{
		{name: "value", creator: func() testutil.Widget { return testutil.Widget{Name: "form"} }},
		{name: "pointer", creator: func() *testutil.Widget { return &testutil.Widget{Name: "form"} }},
		{name: "value with error", creator: func() (testutil.Widget, error) { return testutil.Widget{Name: "form"}, nil }},
		{name: "context", creator: func(*activator.Context) testutil.Widget { return testutil.Widget{Name: "form"} }},
		{name: "owned", creator: func() *activator.Owned[testutil.Widget] {
			return activator.NewOwned(&testutil.Widget{Name: "form"}, testutil.Deleter[testutil.Widget](counter, "owned"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testutil.NewRegistryBuilder(t).
				With(func(r *activator.Registry) error {
					_, err := activator.RegisterDefault[testutil.Widget](r, tt.creator)
					return err
				}).
				Build()

			owned, err := activator.ActivateDefaultOwned[testutil.Widget](a)
			require.NoError(t, err)
			shared, err := activator.ActivateDefaultShared[testutil.Widget](a)
			require.NoError(t, err)
			value, err := activator.ActivateDefaultValue[testutil.Widget](a)
			require.NoError(t, err)

			assert.Equal(t, "form", owned.Value().Name)
			assert.Equal(t, owned.Value(), shared.Value())
			assert.Equal(t, owned.Value(), value)

			owned.Close()
			shared.Close()
		})
	}

	assert.Equal(t, 3, counter.Count("owned"), "creator supplied deleter runs for every form")
}

func TestRegister_InvalidCreators(t *testing.T) {
	tests := []struct {
		name    string
		creator any
	}{
		{name: "not a function", creator: "widget"},
		{name: "no result", creator: func() {}},
		{name: "two results", creator: func() (testutil.Widget, testutil.Widget) { return testutil.Widget{}, testutil.Widget{} }},
		{name: "wrong result", creator: func() string { return "" }},
		{name: "variadic", creator: func(...string) testutil.Widget { return testutil.Widget{} }},
		{name: "parameter object", creator: func(struct {
			activator.In
			Name string
		}) testutil.Widget {
			return testutil.Widget{}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := activator.RegisterDefault[testutil.Widget](activator.NewRegistry(), tt.creator)
			require.Error(t, err)
			assert.ErrorIs(t, err, activator.ErrInvalidCreator)

			var regErr activator.RegistrationError
			require.ErrorAs(t, err, &regErr)
			assert.Equal(t, "register", regErr.Operation)
		})
	}
}

func TestRegister_DefinitionDeleterWins(t *testing.T) {
	counter := testutil.NewDestroyCounter()

	a := testutil.NewRegistryBuilder(t).
		With(func(r *activator.Registry) error {
			_, err := activator.RegisterDefaultWithDeleter(r, func() *activator.Owned[testutil.Widget] {
				return activator.NewOwned(&testutil.Widget{}, testutil.Deleter[testutil.Widget](counter, "creator"))
			}, testutil.Deleter[testutil.Widget](counter, "definition"))
			return err
		}).
		Build()

	_, err := activator.ActivateDefaultValue[testutil.Widget](a)
	require.NoError(t, err)

	assert.Equal(t, 0, counter.Count("creator"))
	testutil.AssertClosedOnce(t, counter, "definition")
}

func TestRegister_Instance(t *testing.T) {
	a := testutil.NewRegistryBuilder(t).
		With(func(r *activator.Registry) error {
			_, err := activator.RegisterDefaultInstance(r, testutil.Widget{Name: "copy"})
			return err
		}).
		Build()

	first, err := activator.ActivateDefaultOwned[testutil.Widget](a)
	require.NoError(t, err)
	first.Get().Name = "changed"

	second := testutil.AssertActivatable[testutil.Widget](t, a, activator.DefaultID)
	assert.Equal(t, "copy", second.Name, "each activation receives its own copy")
}

func TestRegister_AnnotateChain(t *testing.T) {
	var region Region
	var label testutil.Greeter
	var tagged Timeout

	a := testutil.NewRegistryBuilder(t).
		With(func(r *activator.Registry) error {
			reg, err := activator.RegisterDefault[testutil.Widget](r, func(ctx *activator.Context) (testutil.Widget, error) {
				var err error
				if region, err = activator.Annotation[Region](ctx); err != nil {
					return testutil.Widget{}, err
				}
				if label, err = activator.Annotation[testutil.Greeter](ctx); err != nil {
					return testutil.Widget{}, err
				}
				tagged, err = activator.TaggedAnnotation[Timeout](ctx, 5)
				return testutil.Widget{}, err
			})
			if err != nil {
				return err
			}

			reg.Annotate(Region("eu")).AnnotateTagged(5, Timeout(50))
			return activator.AnnotateAs[testutil.Greeter](reg, &testutil.EnglishGreeter{Name: "annotated"}).Err()
		}).
		Build()

	_, err := activator.ActivateDefaultValue[testutil.Widget](a)
	require.NoError(t, err)

	assert.Equal(t, Region("eu"), region)
	assert.Equal(t, "hello annotated", label.Greet())
	assert.Equal(t, Timeout(50), tagged)
}

type Celsius float64

type Fahrenheit float64

func TestDeriveAs(t *testing.T) {
	counter := testutil.NewDestroyCounter()
	core, logs := observer.New(zapcore.WarnLevel)

	a := testutil.NewRegistryBuilder(t).
		With(func(r *activator.Registry) error {
			reg, err := activator.RegisterWithDeleter(r, "en", func(name string) *testutil.EnglishGreeter {
				return &testutil.EnglishGreeter{Name: name}
			}, testutil.Deleter[*testutil.EnglishGreeter](counter, "english"))
			if err != nil {
				return err
			}
			reg.Annotate(Region("uk"))

			if _, err := activator.DeriveAs[testutil.Greeter](reg); err != nil {
				return err
			}

			// *EnglishGreeter never converts to a Widget; activations yield a zero value.
			_, err = activator.DeriveAs[testutil.Widget](reg)
			return err
		}).
		With(func(r *activator.Registry) error {
			reg, err := activator.RegisterDefault[Celsius](r, func() Celsius { return 100 })
			if err != nil {
				return err
			}
			_, err = activator.DeriveAs[Fahrenheit](reg)
			return err
		}).
		Build(activator.WithLogger(zap.New(core)))

	assert.True(t, activator.CanActivate[testutil.Greeter](a, "en", reflect.TypeFor[string]()))

	g, err := activator.ActivateOwned[testutil.Greeter](a, "en", "derived")
	require.NoError(t, err)
	assert.Equal(t, "hello derived", (*g.Get()).Greet())
	assert.Equal(t, 0, counter.Count("english"), "base instance lives as long as the derived one")

	g.Close()
	testutil.AssertClosedOnce(t, counter, "english")

	zero, err := activator.ActivateValue[testutil.Widget](a, "en", "x")
	require.NoError(t, err)
	assert.Equal(t, testutil.Widget{}, zero)
	assert.Equal(t, 1, logs.FilterMessage("derived activation produced a zero value").Len())

	f, err := activator.ActivateDefaultValue[Fahrenheit](a)
	require.NoError(t, err)
	assert.Equal(t, Fahrenheit(100), f, "conversion keeps the numeric value")
}

type Meters int

type Labelled struct {
	Label string
}

func TestDeriveWrapped(t *testing.T) {
	a := testutil.NewRegistryBuilder(t).
		With(func(r *activator.Registry) error {
			reg, err := activator.Register[int](r, "n", func(s string) (int, error) { return strconv.Atoi(s) })
			if err != nil {
				return err
			}

			if _, err := activator.DeriveWrapped[Labelled](reg, func(n int) Labelled {
				return Labelled{Label: "#" + strconv.Itoa(n)}
			}); err != nil {
				return err
			}

			_, err = activator.DeriveWrapped[Meters, int](reg, nil)
			return err
		}).
		Build()

	l, err := activator.ActivateValue[Labelled](a, "n", "7")
	require.NoError(t, err)
	assert.Equal(t, "#7", l.Label)

	m, err := activator.ActivateValue[Meters](a, "n", "12")
	require.NoError(t, err)
	assert.Equal(t, Meters(12), m)

	_, err = activator.ActivateValue[Meters](a, "n", "not a number")
	assert.ErrorAs(t, err, new(*strconv.NumError))

	r := activator.NewRegistry()
	reg, err := activator.RegisterDefault[string](r, func() string { return "" })
	require.NoError(t, err)

	_, err = activator.DeriveWrapped[Labelled, string](reg, nil)
	assert.ErrorIs(t, err, activator.ErrTypeMismatch)
}
