package module

import (
	"context"
	"fmt"

	"github.com/artpar/crudgate/core/container"
	"github.com/artpar/crudgate/core/entity"
	"github.com/artpar/crudgate/core/routing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Phase names a bootstrap step.
type Phase string

const (
	PhaseServices Phase = "services"
	PhaseRoutes   Phase = "routes"
	PhaseEntities Phase = "entities"
)

// LoadError reports the module and phase a bootstrap failure came from.
type LoadError struct {
	Module string
	Phase  Phase
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("module %q: %s: %v", e.Module, e.Phase, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ServiceLoader registers every module's services in priority order.
type ServiceLoader struct {
	Logger zerolog.Logger
}

// Load calls RegisterServices on each descriptor with a container view scoped to
// that module. The first failure stops the load.
func (l ServiceLoader) Load(ctx context.Context, reg *Registry, c *container.Container) ([]string, error) {
	var loaded []string
	for _, d := range reg.SortedByPriority() {
		if err := ctx.Err(); err != nil {
			return loaded, err
		}
		if err := d.RegisterServices(c.For(d.Name())); err != nil {
			return loaded, &LoadError{Module: d.Name(), Phase: PhaseServices, Err: err}
		}
		l.Logger.Debug().
			Str("module", d.Name()).
			Int("priority", d.Priority()).
			Msg("services registered")
		loaded = append(loaded, d.Name())
	}
	return loaded, nil
}

// RouteLoader hands every module's route provider to a routing.Manager.
type RouteLoader struct {
	Manager *routing.Manager
	Logger  zerolog.Logger
}

// Load registers providers in registration order and lets the manager mount them
// in priority order.
func (l RouteLoader) Load(ctx context.Context, reg *Registry, r chi.Router) ([]string, error) {
	var modules []string
	for _, d := range reg.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, ok := d.RouteProvider()
		if !ok || p == nil {
			continue
		}
		l.Manager.Register(p)
		modules = append(modules, d.Name())
	}

	if err := l.Manager.LoadAllRoutes(r); err != nil {
		return nil, &LoadError{Module: failedRouteModule(modules, l.Manager), Phase: PhaseRoutes, Err: err}
	}

	for _, e := range l.Manager.Loaded() {
		l.Logger.Debug().
			Str("module", e.Module).
			Str("prefix", e.Prefix).
			Int("priority", e.Priority).
			Msg("routes mounted")
	}
	return modules, nil
}

// failedRouteModule returns the first module whose provider was not mounted.
func failedRouteModule(modules []string, m *routing.Manager) string {
	mounted := make(map[string]bool)
	for _, e := range m.Loaded() {
		mounted[e.Module] = true
	}
	for _, p := range m.Sorted() {
		if !mounted[p.Module()] {
			return p.Module()
		}
	}
	if len(modules) > 0 {
		return modules[0]
	}
	return ""
}

// EntityLoader collects entity paths in priority order.
type EntityLoader struct {
	Collector *entity.Collector
	Logger    zerolog.Logger
}

// Load collects every module's entity paths.
func (l EntityLoader) Load(ctx context.Context, reg *Registry) ([]string, error) {
	var modules []string
	for _, d := range reg.SortedByPriority() {
		if err := ctx.Err(); err != nil {
			return modules, err
		}
		p, ok := d.EntityPaths()
		if !ok || p == nil {
			continue
		}
		if err := l.Collector.Collect(p); err != nil {
			return modules, &LoadError{Module: d.Name(), Phase: PhaseEntities, Err: err}
		}
		l.Logger.Debug().Str("module", d.Name()).Msg("entity paths collected")
		modules = append(modules, d.Name())
	}
	return modules, nil
}

// Loaders bundles the three loaders used by the Orchestrator.
type Loaders struct {
	Services ServiceLoader
	Routes   RouteLoader
	Entities EntityLoader
}

// NewLoaders creates loaders backed by a fresh routing manager and entity collector.
func NewLoaders(logger zerolog.Logger) Loaders {
	return Loaders{
		Services: ServiceLoader{Logger: logger},
		Routes:   RouteLoader{Manager: routing.NewManager(), Logger: logger},
		Entities: EntityLoader{Collector: entity.NewCollector(), Logger: logger},
	}
}
