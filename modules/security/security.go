// Package security binds the request guard (Bearer token authentication, role
// checks) and the login rate limiter. It has no routes; other modules install
// its middleware on theirs.
package security

import (
	"context"
	"fmt"
	"time"

	apihttp "github.com/artpar/crudgate/adapters/http"
	crudhttp "github.com/artpar/crudgate/adapters/http/crud"
	"github.com/artpar/crudgate/adapters/metrics"
	"github.com/artpar/crudgate/adapters/ratelimit"
	"github.com/artpar/crudgate/config"
	"github.com/artpar/crudgate/core/container"
	"github.com/artpar/crudgate/core/module"
	"github.com/artpar/crudgate/ports"
	"github.com/rs/zerolog"
)

const (
	Name     = "security"
	Priority = 30
)

// Limiters holds the configured rate limiters. A nil limiter is disabled.
type Limiters struct {
	Login ports.RateLimiter
}

// Module is the security module descriptor.
type Module struct {
	module.Base
}

// New creates the security module.
func New() *Module {
	return &Module{Base: module.Base{ModuleName: Name, ModuleOrder: Priority}}
}

// RegisterServices binds *apihttp.Guard and *Limiters.
func (m *Module) RegisterServices(c *container.Container) error {
	if err := container.Provide(c, func(c *container.Container) (*apihttp.Guard, error) {
		tokens, err := container.Resolve[ports.TokenService](c)
		if err != nil {
			return nil, err
		}
		users, err := container.Resolve[ports.UserStore](c)
		if err != nil {
			return nil, err
		}
		return apihttp.NewGuard(apihttp.GuardDeps{
			Tokens:  tokens,
			Users:   users,
			Errors:  container.MustResolve[*crudhttp.ErrorHandler](c),
			Metrics: container.MustResolve[*metrics.Collector](c),
			Logger:  container.MustResolve[zerolog.Logger](c).With().Str("module", Name).Logger(),
		}), nil
	}); err != nil {
		return err
	}

	return container.Provide(c, newLimiters)
}

func newLimiters(c *container.Container) (*Limiters, error) {
	holder, err := container.Resolve[*config.Holder](c)
	if err != nil {
		return nil, err
	}
	logger := container.MustResolve[zerolog.Logger](c)
	cfg := holder.Get().Security

	rl := cfg.LoginRateLimit
	if !rl.IsEnabled() {
		logger.Info().Msg("login rate limiting disabled")
		return &Limiters{}, nil
	}

	switch rl.Backend {
	case config.LimiterRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client, err := ratelimit.NewRedisClient(ctx, ratelimit.RedisOptions{
			URL:      cfg.Redis.URL,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("login rate limiter: %w", err)
		}
		c.OnClose(client.Close)
		logger.Info().Int("limit", rl.Limit).Dur("window", rl.Window).Msg("login rate limiting via redis")
		return &Limiters{Login: ratelimit.NewRedis(client, rl.Limit, rl.Window)}, nil

	default:
		limiter := ratelimit.NewMemory(ratelimit.MemoryConfig{Limit: rl.Limit, Window: rl.Window})
		c.OnClose(func() error {
			limiter.Stop()
			return nil
		})
		logger.Info().Int("limit", rl.Limit).Dur("window", rl.Window).Msg("login rate limiting in memory")
		return &Limiters{Login: limiter}, nil
	}
}
