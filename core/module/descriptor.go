// Package module implements the startup bootstrap of application modules.
//
// A module is described by a Descriptor. Descriptors are registered once in a
// Registry; the Orchestrator then applies every descriptor in three phases:
// services (priority order), routes (via the routing manager) and entity paths.
package module

import (
	"github.com/artpar/crudgate/core/container"
	"github.com/artpar/crudgate/core/entity"
	"github.com/artpar/crudgate/core/routing"
)

// Descriptor is the passive registration record of one module.
type Descriptor interface {
	// Name is unique across the registry.
	Name() string
	// Priority orders initialization; lower values run first.
	Priority() int
	// RegisterServices adds the module's bindings. It must only add bindings.
	RegisterServices(c *container.Container) error
	// RouteProvider returns the module's routes, if it has any.
	RouteProvider() (routing.Provider, bool)
	// EntityPaths returns the module's entity metadata, if it owns any entities.
	EntityPaths() (entity.PathProvider, bool)
}

// HasPriorityOver reports whether a initializes before b.
func HasPriorityOver(a, b Descriptor) bool {
	return a.Priority() < b.Priority()
}

// Base provides the identity half of a Descriptor and reports no routes and no
// entities. Embed it and implement RegisterServices.
type Base struct {
	ModuleName  string
	ModuleOrder int
}

func (b Base) Name() string  { return b.ModuleName }
func (b Base) Priority() int { return b.ModuleOrder }

// RouteProvider reports no routes.
func (b Base) RouteProvider() (routing.Provider, bool) { return nil, false }

// EntityPaths reports no entities.
func (b Base) EntityPaths() (entity.PathProvider, bool) { return nil, false }
