package activator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/activator"
	"github.com/junioryono/activator/internal/testutil"
)

func baseDependencies(t *testing.T) *testutil.RegistryBuilder {
	t.Helper()

	return testutil.NewRegistryBuilder(t).
		With(func(r *activator.Registry) error {
			_, err := activator.RegisterDefault[testutil.TestLogger](r, testutil.NewTestLogger)
			return err
		}).
		With(func(r *activator.Registry) error {
			_, err := activator.RegisterDefault[testutil.TestDatabase](r, testutil.NewTestDatabase)
			return err
		}).
		With(func(r *activator.Registry) error {
			_, err := activator.Register[testutil.TestDatabase](r, "replica", func() testutil.TestDatabase {
				return testutil.NewTestDatabaseNamed("replica")
			})
			return err
		})
}

func TestRegisterType_Positional(t *testing.T) {
	var parents []string

	a := baseDependencies(t).
		With(func(r *activator.Registry) error {
			_, err := activator.RegisterDefaultType[*testutil.TestService](r, testutil.NewTestService)
			return err
		}).
		With(func(r *activator.Registry) error {
			return activator.Intercept[testutil.TestLogger](r, func(_ *testutil.TestLogger, ctx *activator.Context) {
				parents = append(parents, ctx.Parent().Signature().String()+"|"+ctx.Description())
			})
		}).
		Build()

	svc := testutil.AssertActivatable[*testutil.TestService](t, a, activator.DefaultID)
	require.NotNil(t, svc.Logger)
	assert.Equal(t, "testdb", svc.Database.Name())

	require.Len(t, parents, 1)
	assert.Equal(t, "*testutil.TestService()|parameter 0 of *testutil.TestService()", parents[0])
}

func TestRegisterType_ZeroValue(t *testing.T) {
	a := testutil.NewRegistryBuilder(t).
		With(func(r *activator.Registry) error {
			_, err := activator.RegisterType[testutil.Widget](r, "zero", nil)
			return err
		}).
		Build()

	w := testutil.AssertActivatable[testutil.Widget](t, a, "zero")
	assert.Equal(t, testutil.Widget{}, w)
}

type serviceParams struct {
	activator.In

	Logger  testutil.TestLogger
	Replica testutil.TestDatabase `id:"replica"`
	Primary testutil.TestDatabase
	Cache   testutil.Greeter `optional:"true"`
	Skipped string           `inject:"-"`
}

type paramService struct {
	params serviceParams
}

func TestRegisterType_ParamObject(t *testing.T) {
	a := baseDependencies(t).
		With(func(r *activator.Registry) error {
			_, err := activator.RegisterDefaultType[*paramService](r, func(ctx *activator.Context, p serviceParams) *paramService {
				return &paramService{params: p}
			})
			return err
		}).
		Build()

	svc := testutil.AssertActivatable[*paramService](t, a, activator.DefaultID)
	assert.NotNil(t, svc.params.Logger)
	assert.Equal(t, "replica", svc.params.Replica.Name())
	assert.Equal(t, "testdb", svc.params.Primary.Name())
	assert.Nil(t, svc.params.Cache, "optional field left zero")
	assert.Empty(t, svc.params.Skipped)
}

func TestRegisterType_MissingDependency(t *testing.T) {
	a := testutil.NewRegistryBuilder(t).
		With(func(r *activator.Registry) error {
			_, err := activator.RegisterDefaultType[*testutil.TestService](r, testutil.NewTestService)
			return err
		}).
		Build()

	_, err := activator.ActivateDefaultValue[*testutil.TestService](a)
	require.Error(t, err)
	assert.True(t, activator.IsUnresolved(err))
	assert.Contains(t, err.Error(), "no default definition for testutil.TestLogger()")
}

func TestRegisterType_MaxArity(t *testing.T) {
	r := activator.NewRegistry(activator.WithMaxArity(1))
	assert.Equal(t, 1, r.MaxArity())

	_, err := activator.RegisterDefaultType[*testutil.TestService](r, testutil.NewTestService)
	require.Error(t, err)
	assert.ErrorIs(t, err, activator.ErrArityExceeded)

	_, err = activator.RegisterType[*paramService](r, "params", func(p serviceParams) *paramService {
		return &paramService{params: p}
	})
	assert.ErrorIs(t, err, activator.ErrArityExceeded, "parameter object fields count toward arity")

	assert.Equal(t, activator.DefaultMaxArity, activator.NewRegistry().MaxArity())
	assert.Equal(t, 0, activator.NewRegistry(activator.WithMaxArity(-3)).MaxArity())
}

func TestRegisterExplicit(t *testing.T) {
	a := baseDependencies(t).
		With(func(r *activator.Registry) error {
			_, err := activator.RegisterExplicit[*testutil.TestService](r, "replica-backed", testutil.NewTestService,
				activator.ParamOf[testutil.TestLogger](activator.DefaultID),
				activator.ParamOf[testutil.TestDatabase]("replica"),
			)
			return err
		}).
		Build()

	svc := testutil.AssertActivatable[*testutil.TestService](t, a, "replica-backed")
	assert.Equal(t, "replica", svc.Database.Name())
}

func TestRegisterExplicit_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		ctor    any
		params  []activator.Param
		wantErr error
	}{
		{
			name:    "nil constructor",
			wantErr: activator.ErrCreatorNil,
		},
		{
			name:    "arity mismatch",
			ctor:    testutil.NewTestService,
			params:  []activator.Param{activator.ParamOf[testutil.TestLogger]("")},
			wantErr: activator.ErrArityMismatch,
		},
		{
			name: "not assignable",
			ctor: testutil.NewTestService,
			params: []activator.Param{
				activator.ParamOf[testutil.TestLogger](""),
				activator.ParamOf[string](""),
			},
			wantErr: activator.ErrTypeMismatch,
		},
		{
			name: "parameter object",
			ctor: func(p serviceParams) *testutil.TestService { return nil },
			params: []activator.Param{
				activator.ParamOf[serviceParams](""),
			},
			wantErr: activator.ErrInvalidCreator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := activator.RegisterExplicit[*testutil.TestService](activator.NewRegistry(), "", tt.ctor, tt.params...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParam_String(t *testing.T) {
	assert.Equal(t, "testutil.Widget", activator.ParamOf[testutil.Widget](activator.DefaultID).String())
	assert.Equal(t, `testutil.Widget["alt"]`, activator.ParamOf[testutil.Widget]("alt").String())
}
