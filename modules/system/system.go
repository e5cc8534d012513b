// Package system mounts operational endpoints under /system: health, version,
// the bootstrap report, the route table and Prometheus metrics.
package system

import (
	"context"
	"net/http"
	"time"

	apihttp "github.com/artpar/crudgate/adapters/http"
	crudhttp "github.com/artpar/crudgate/adapters/http/crud"
	"github.com/artpar/crudgate/adapters/metrics"
	"github.com/artpar/crudgate/adapters/sqlstore"
	"github.com/artpar/crudgate/config"
	"github.com/artpar/crudgate/core/container"
	"github.com/artpar/crudgate/core/crud"
	"github.com/artpar/crudgate/core/module"
	"github.com/artpar/crudgate/core/routing"
	"github.com/artpar/crudgate/modules/common"
	"github.com/artpar/crudgate/pkg/envelope"
	"github.com/go-chi/chi/v5"
)

const (
	Name     = "system"
	Priority = 10
	Prefix   = "/system"
)

// Runtime exposes the bootstrap state the endpoints report. The composition
// root binds it before initialization.
type Runtime struct {
	Orchestrator *module.Orchestrator
	Router       chi.Routes
}

// Module is the system module descriptor.
type Module struct {
	module.Base
	// c resolves route dependencies when routes are mounted.
	c *container.Container
}

// New creates the system module. Its routes resolve their dependencies
// from c once services are built.
func New(c *container.Container) *Module {
	return &Module{Base: module.Base{ModuleName: Name, ModuleOrder: Priority}, c: c}
}

// RegisterServices binds nothing; the endpoints only read shared bindings.
func (m *Module) RegisterServices(*container.Container) error {
	return nil
}

// RouteProvider mounts the /system endpoints.
func (m *Module) RouteProvider() (routing.Provider, bool) {
	return routing.NewProvider(Name, Priority, Prefix, m.routes), true
}

func (m *Module) routes(r chi.Router) error {
	h, err := container.Resolve[*crudhttp.Handler](m.c)
	if err != nil {
		return err
	}
	build, err := container.Resolve[common.BuildInfo](m.c)
	if err != nil {
		return err
	}
	db, err := container.Resolve[*sqlstore.DB](m.c)
	if err != nil {
		return err
	}
	rt, err := container.Resolve[*Runtime](m.c)
	if err != nil {
		return err
	}

	r.Get("/health", h.Func(crud.Action("system", func(req *crud.Request, _ crud.Params) (crud.Result, error) {
		return crud.NewResult(map[string]any{
			"status": "ok",
			"uptime": time.Since(build.StartedAt).Round(time.Second).String(),
		}, "Service is healthy", http.StatusOK, nil), nil
	})))

	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			_ = envelope.Write(w, envelope.Failure(http.StatusServiceUnavailable, "Database unavailable", nil, nil))
			return
		}
		_ = envelope.Write(w, envelope.Success(map[string]string{"database": "ok"}, "Service is ready", http.StatusOK, nil))
	})

	r.Get("/version", h.Func(crud.Action("system", func(*crud.Request, crud.Params) (crud.Result, error) {
		return crud.NewResult(build, "Version retrieved successfully", http.StatusOK, nil), nil
	})))

	r.Get("/modules", h.Func(crud.Action("system", func(*crud.Request, crud.Params) (crud.Result, error) {
		report := rt.Orchestrator.Report()
		return crud.NewResult(report.Modules, "Modules retrieved successfully", http.StatusOK, map[string]any{
			"bindings": report.Bindings,
			"entities": report.Entities,
			"duration": report.Duration.String(),
		}), nil
	})))

	r.Get("/routes", h.Func(crud.Action("system", func(*crud.Request, crud.Params) (crud.Result, error) {
		routes, err := apihttp.Walk(rt.Router)
		if err != nil {
			return crud.Result{}, err
		}
		return crud.NewResult(routes, "Routes retrieved successfully", http.StatusOK, map[string]any{
			"total":     len(routes),
			"providers": rt.Orchestrator.Routes(),
		}), nil
	})))

	holder, err := container.Resolve[*config.Holder](m.c)
	if err != nil {
		return err
	}
	if holder.Get().Metrics.Enabled {
		collector, err := container.Resolve[*metrics.Collector](m.c)
		if err != nil {
			return err
		}
		r.Handle("/metrics", collector.Handler())
	}
	return nil
}
