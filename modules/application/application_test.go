package application_test

import (
	"testing"

	"github.com/artpar/crudgate/core/container"
	"github.com/artpar/crudgate/modules/application"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModule_Descriptor(t *testing.T) {
	m := application.New(container.New())
	assert.Equal(t, "application", m.Name())
	assert.Equal(t, 100, m.Priority())

	p, ok := m.RouteProvider()
	require.True(t, ok)
	assert.Equal(t, "/api", p.Prefix())
	assert.Equal(t, "application", p.Module())
}

func TestModule_EntityPaths(t *testing.T) {
	provider, ok := application.New(container.New()).EntityPaths()
	require.True(t, ok)

	paths := provider.EntityPaths()
	require.Len(t, paths, 2)
	assert.Equal(t, "users", paths[0].Name, "users must migrate before products")
	assert.Equal(t, "products", paths[1].Name)
	for _, p := range paths {
		assert.Equal(t, "application", p.Module)
	}
}

func TestModule_RegisterServicesKeepsDescriptor(t *testing.T) {
	c := container.New()
	m := application.New(c)
	before := *m

	require.NoError(t, m.RegisterServices(c.For(application.Name)))
	assert.Equal(t, before, *m)
	assert.NotEmpty(t, c.Bindings())
}
