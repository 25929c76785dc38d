package activator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/activator"
	"github.com/junioryono/activator/internal/testutil"
)

type RequestID string

func TestFromContext(t *testing.T) {
	a := widgetRegistry(t).Build()
	root := activator.NewContext(a, "request", nil)

	got, err := activator.FromContext(activator.IntoContext(context.Background(), root))
	require.NoError(t, err)
	assert.Same(t, root, got)

	tests := []struct {
		name string
		ctx  context.Context
	}{
		{name: "nil", ctx: nil},
		{name: "empty", ctx: context.Background()},
		{name: "nil root", ctx: activator.IntoContext(context.Background(), nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := activator.FromContext(tt.ctx)
			assert.ErrorIs(t, err, activator.ErrContextNotFound)
		})
	}
}

func TestActivateFromContext(t *testing.T) {
	var seen []RequestID
	var parents []string

	a := testutil.NewRegistryBuilder(t).
		With(func(r *activator.Registry) error {
			reg, err := activator.Register[testutil.Widget](r, "handler", func(ctx *activator.Context) testutil.Widget {
				id, _ := activator.Annotation[RequestID](ctx)
				seen = append(seen, id)
				parents = append(parents, ctx.Parent().ID())
				return testutil.Widget{Name: string(id), ID: string(activator.MustAnnotation[Region](ctx))}
			})
			if err != nil {
				return err
			}
			return reg.Annotate(Region("definition"), RequestID("definition")).Err()
		}).
		Build()

	root := activator.NewContextWith(context.Background(), a, "request", activator.NewAnnotations(RequestID("req-1")))
	ctx := activator.IntoContext(context.Background(), root)

	// The same root serves any number of activations.
	for range 2 {
		w, err := activator.ActivateFromContext[testutil.Widget](ctx, "handler")
		require.NoError(t, err)
		assert.Equal(t, "req-1", w.Value().Name, "request annotations win over definition ones")
		assert.Equal(t, "definition", w.Value().ID)
		w.Close()
	}

	assert.Equal(t, []RequestID{"req-1", "req-1"}, seen)
	assert.Equal(t, []string{"request", "request"}, parents)
	assert.False(t, activator.HasAnnotation[Region](root), "root annotations are not modified")

	// Activate from the same root does not see the request annotations.
	plain, err := activator.Activate[testutil.Widget](root, "handler").Value()
	require.NoError(t, err)
	assert.Equal(t, "definition", plain.Name)

	_, err = activator.ActivateFromContext[testutil.Widget](context.Background(), "handler")
	assert.ErrorIs(t, err, activator.ErrContextNotFound)

	_, err = activator.ActivateFromContext[testutil.Widget](activator.IntoContext(context.Background(), activator.NewContext(nil, "", nil)), "handler")
	assert.ErrorIs(t, err, activator.ErrActivatorNil)
}
