package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junioryono/activator"
)

// RegistryBuilder provides a fluent interface for building test registries
type RegistryBuilder struct {
	t        *testing.T
	registry *activator.Registry
}

// NewRegistryBuilder creates a new RegistryBuilder
func NewRegistryBuilder(t *testing.T, opts ...activator.RegistryOption) *RegistryBuilder {
	return &RegistryBuilder{
		t:        t,
		registry: activator.NewRegistry(opts...),
	}
}

// With runs a registration and fails the test if it returns an error.
func (b *RegistryBuilder) With(register func(r *activator.Registry) error) *RegistryBuilder {
	b.t.Helper()
	require.NoError(b.t, register(b.registry))
	return b
}

// WithModule registers a module.
func (b *RegistryBuilder) WithModule(m activator.Module) *RegistryBuilder {
	b.t.Helper()
	require.NoError(b.t, b.registry.RegisterModule(m))
	return b
}

// Registry returns the registry being built.
func (b *RegistryBuilder) Registry() *activator.Registry {
	return b.registry
}

// Build freezes the registry and returns its activator.
func (b *RegistryBuilder) Build(opts ...activator.Option) *activator.Activator {
	b.t.Helper()
	a, err := b.registry.Build(opts...)
	require.NoError(b.t, err, "failed to build activator")
	return a
}
