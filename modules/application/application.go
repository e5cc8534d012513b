// Package application mounts the user and product resources under /api and
// owns their tables.
package application

import (
	apihttp "github.com/artpar/crudgate/adapters/http"
	crudhttp "github.com/artpar/crudgate/adapters/http/crud"
	"github.com/artpar/crudgate/adapters/sqlstore"
	"github.com/artpar/crudgate/app"
	"github.com/artpar/crudgate/core/container"
	"github.com/artpar/crudgate/core/crud"
	"github.com/artpar/crudgate/core/entity"
	"github.com/artpar/crudgate/core/module"
	"github.com/artpar/crudgate/core/routing"
	"github.com/artpar/crudgate/domain/product"
	"github.com/artpar/crudgate/domain/user"
	"github.com/artpar/crudgate/ports"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	Name     = "application"
	Priority = 100
	Prefix   = "/api"
)

// Module is the application module descriptor.
type Module struct {
	module.Base
	// c resolves route dependencies when routes are mounted.
	c *container.Container
}

// New creates the application module. Its routes resolve their dependencies
// from c once services are built.
func New(c *container.Container) *Module {
	return &Module{Base: module.Base{ModuleName: Name, ModuleOrder: Priority}, c: c}
}

// RegisterServices binds *app.UserService and *app.ProductService.
func (m *Module) RegisterServices(c *container.Container) error {
	if err := container.Provide(c, func(c *container.Container) (*app.UserService, error) {
		store, err := container.Resolve[ports.UserStore](c)
		if err != nil {
			return nil, err
		}
		return app.NewUserService(app.UserDeps{
			Store:  store,
			Hasher: container.MustResolve[ports.Hasher](c),
			Clock:  container.MustResolve[ports.Clock](c),
			Logger: container.MustResolve[zerolog.Logger](c).With().Str("module", Name).Logger(),
		}), nil
	}); err != nil {
		return err
	}

	return container.Provide(c, func(c *container.Container) (*app.ProductService, error) {
		store, err := container.Resolve[ports.ProductStore](c)
		if err != nil {
			return nil, err
		}
		return app.NewProductService(app.ProductDeps{
			Store:  store,
			Users:  container.MustResolve[ports.UserStore](c),
			Clock:  container.MustResolve[ports.Clock](c),
			Logger: container.MustResolve[zerolog.Logger](c).With().Str("module", Name).Logger(),
		}), nil
	})
}

// RouteProvider mounts /api/users and /api/products.
func (m *Module) RouteProvider() (routing.Provider, bool) {
	return routing.NewProvider(Name, Priority, Prefix, m.routes), true
}

// EntityPaths returns the users and products tables.
func (m *Module) EntityPaths() (entity.PathProvider, bool) {
	return sqlstore.EntityPaths(Name), true
}

func (m *Module) routes(r chi.Router) error {
	h, err := container.Resolve[*crudhttp.Handler](m.c)
	if err != nil {
		return err
	}
	guard, err := container.Resolve[*apihttp.Guard](m.c)
	if err != nil {
		return err
	}
	users, err := container.Resolve[*app.UserService](m.c)
	if err != nil {
		return err
	}
	products, err := container.Resolve[*app.ProductService](m.c)
	if err != nil {
		return err
	}

	usersCtrl := crudhttp.NewController(crud.NewFactory[user.Command, user.User]("user", app.UserValidator{}, users), h)
	selfCtrl := crudhttp.NewController(crud.NewFactory[user.Command, user.User]("user", app.UserValidator{Self: true}, users), h)
	productsCtrl := crudhttp.NewController(crud.NewFactory[product.Command, product.Product]("product", app.ProductValidator{}, products), h)

	r.Use(guard.Authenticate)

	r.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			// The caller's own account; the id comes from the token.
			r.Use(guard.RequireAuth)
			r.Get("/me", selfCtrl.Show)
			r.Put("/me", selfCtrl.Update)
			r.Patch("/me", selfCtrl.Update)
		})
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireRole(user.RoleAdmin))
			usersCtrl.Routes(r)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", productsCtrl.Index)
		r.Get("/{id}", productsCtrl.Show)
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAuth)
			r.Post("/", productsCtrl.Create)
			r.Put("/{id}", productsCtrl.Update)
			r.Patch("/{id}", productsCtrl.Update)
			r.Delete("/{id}", productsCtrl.Delete)
		})
	})
	return nil
}
