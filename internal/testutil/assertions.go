package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/activator"
)

// AssertActivatable activates T by value and fails the test on error.
func AssertActivatable[T any](t *testing.T, a *activator.Activator, id string, args ...any) T {
	t.Helper()
	v, err := activator.ActivateValue[T](a, id, args...)
	require.NoError(t, err, "failed to activate %T with id %q", *new(T), id)
	return v
}

// AssertUnresolved checks that activating T fails with an unresolved error
// and returns it.
func AssertUnresolved[T any](t *testing.T, a *activator.Activator, id string, args ...any) activator.UnresolvedDependencyError {
	t.Helper()
	_, err := activator.ActivateOwned[T](a, id, args...)
	require.Error(t, err)
	assert.True(t, activator.IsUnresolved(err), "expected unresolved dependency error, got: %v", err)

	var unresolved activator.UnresolvedDependencyError
	require.ErrorAs(t, err, &unresolved)
	return unresolved
}

// AssertDuplicate checks that err reports a duplicate definition.
func AssertDuplicate(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, activator.IsDuplicate(err), "expected duplicate definition error, got: %v", err)
}

// AssertClosedOnce checks that the labelled deleter ran exactly once.
func AssertClosedOnce(t *testing.T, c *DestroyCounter, label string) {
	t.Helper()
	assert.Equal(t, 1, c.Count(label), "deleter %q ran %d times", label, c.Count(label))
}
