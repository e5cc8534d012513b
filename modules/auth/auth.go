// Package auth binds the token service and mounts the login and current-user
// endpoints under /auth.
package auth

import (
	jwtauth "github.com/artpar/crudgate/adapters/auth"
	apihttp "github.com/artpar/crudgate/adapters/http"
	crudhttp "github.com/artpar/crudgate/adapters/http/crud"
	"github.com/artpar/crudgate/app"
	"github.com/artpar/crudgate/config"
	"github.com/artpar/crudgate/core/container"
	"github.com/artpar/crudgate/core/module"
	"github.com/artpar/crudgate/core/routing"
	"github.com/artpar/crudgate/modules/security"
	"github.com/artpar/crudgate/ports"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	Name     = "auth"
	Priority = 20
	Prefix   = "/auth"
)

// Module is the auth module descriptor.
type Module struct {
	module.Base
	// c resolves route dependencies when routes are mounted.
	c *container.Container
}

// New creates the auth module. Its routes resolve their dependencies
// from c once services are built.
func New(c *container.Container) *Module {
	return &Module{Base: module.Base{ModuleName: Name, ModuleOrder: Priority}, c: c}
}

// RegisterServices binds ports.TokenService and *app.AuthService.
func (m *Module) RegisterServices(c *container.Container) error {
	if err := container.Provide(c, func(c *container.Container) (ports.TokenService, error) {
		holder, err := container.Resolve[*config.Holder](c)
		if err != nil {
			return nil, err
		}
		cfg := holder.Get().Auth
		if cfg.JWTSecret == "" {
			logger := container.MustResolve[zerolog.Logger](c)
			logger.Warn().Msg("auth.jwt_secret is not set; tokens will not survive a restart")
		}
		return jwtauth.NewTokenService(jwtauth.Config{
			Secret:     cfg.JWTSecret,
			Issuer:     cfg.Issuer,
			Expiration: cfg.TokenTTL,
			Clock:      container.MustResolve[ports.Clock](c),
			IDs:        container.MustResolve[ports.IDGenerator](c),
		}), nil
	}); err != nil {
		return err
	}

	return container.Provide(c, func(c *container.Container) (*app.AuthService, error) {
		users, err := container.Resolve[ports.UserStore](c)
		if err != nil {
			return nil, err
		}
		return app.NewAuthService(app.AuthDeps{
			Users:  users,
			Hasher: container.MustResolve[ports.Hasher](c),
			Tokens: container.MustResolve[ports.TokenService](c),
			Logger: container.MustResolve[zerolog.Logger](c).With().Str("module", Name).Logger(),
		}), nil
	})
}

// RouteProvider mounts POST /auth/login and GET /auth/me.
func (m *Module) RouteProvider() (routing.Provider, bool) {
	return routing.NewProvider(Name, Priority, Prefix, m.routes), true
}

func (m *Module) routes(r chi.Router) error {
	svc, err := container.Resolve[*app.AuthService](m.c)
	if err != nil {
		return err
	}
	h, err := container.Resolve[*crudhttp.Handler](m.c)
	if err != nil {
		return err
	}
	guard, err := container.Resolve[*apihttp.Guard](m.c)
	if err != nil {
		return err
	}
	limiters, err := container.Resolve[*security.Limiters](m.c)
	if err != nil {
		return err
	}

	login := r.With()
	if limiters.Login != nil {
		login = r.With(guard.RateLimit("login", limiters.Login))
	}
	login.Post("/login", h.Func(svc.LoginOperation()))

	r.With(guard.Authenticate, guard.RequireAuth).Get("/me", h.Func(svc.MeOperation()))
	return nil
}
