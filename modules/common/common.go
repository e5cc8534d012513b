// Package common is the first module to initialize. It binds the shared
// infrastructure every other module resolves: configuration, logging, clocks,
// hashing, metrics, the database and the CRUD response handler.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/crudgate/adapters/clock"
	"github.com/artpar/crudgate/adapters/hasher"
	crudhttp "github.com/artpar/crudgate/adapters/http/crud"
	"github.com/artpar/crudgate/adapters/idgen"
	"github.com/artpar/crudgate/adapters/metrics"
	"github.com/artpar/crudgate/adapters/sqlstore"
	"github.com/artpar/crudgate/config"
	"github.com/artpar/crudgate/core/container"
	"github.com/artpar/crudgate/core/module"
	"github.com/artpar/crudgate/ports"
	"github.com/rs/zerolog"
)

const (
	Name     = "common"
	Priority = 0
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// Options carries the values created before bootstrap.
type Options struct {
	Config  *config.Holder
	Logger  zerolog.Logger
	Metrics *metrics.Collector
	Errors  *crudhttp.ErrorHandler
	Build   BuildInfo
	// DB overrides opening a database from config. The caller keeps ownership.
	DB *sqlstore.DB
}

// Module is the common module descriptor.
type Module struct {
	module.Base
	opts Options
}

// New creates the common module.
func New(opts Options) *Module {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Errors == nil {
		opts.Errors = crudhttp.NewErrorHandler(opts.Config.Get().Debug)
	}
	if opts.Build.StartedAt.IsZero() {
		opts.Build.StartedAt = time.Now().UTC()
	}
	return &Module{Base: module.Base{ModuleName: Name, ModuleOrder: Priority}, opts: opts}
}

// RegisterServices binds the shared infrastructure.
func (m *Module) RegisterServices(c *container.Container) error {
	cfg := m.opts.Config.Get()

	return errors.Join(
		container.Instance(c, m.opts.Config),
		container.Instance(c, m.opts.Logger),
		container.Instance(c, m.opts.Metrics),
		container.Instance(c, m.opts.Errors),
		container.Instance(c, m.opts.Build),
		container.Instance[ports.Clock](c, clock.Real{}),
		container.Instance[ports.IDGenerator](c, idgen.UUID{}),
		container.Instance[ports.Hasher](c, hasher.NewBcrypt(cfg.Auth.BcryptCost)),

		container.Provide(c, m.openDB),
		container.Provide(c, func(c *container.Container) (ports.UserStore, error) {
			db, err := container.Resolve[*sqlstore.DB](c)
			if err != nil {
				return nil, err
			}
			return sqlstore.NewUserStore(db), nil
		}),
		container.Provide(c, func(c *container.Container) (ports.ProductStore, error) {
			db, err := container.Resolve[*sqlstore.DB](c)
			if err != nil {
				return nil, err
			}
			return sqlstore.NewProductStore(db), nil
		}),

		container.Provide(c, func(c *container.Container) (*crudhttp.Handler, error) {
			return crudhttp.NewHandler(crudhttp.Deps{
				Errors:  container.MustResolve[*crudhttp.ErrorHandler](c),
				Logger:  container.MustResolve[zerolog.Logger](c),
				Metrics: container.MustResolve[*metrics.Collector](c),
			}), nil
		}),
	)
}

func (m *Module) openDB(c *container.Container) (*sqlstore.DB, error) {
	if m.opts.DB != nil {
		return m.opts.DB, nil
	}

	dbCfg := m.opts.Config.Get().Database
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:          dbCfg.Driver,
		DSN:             dbCfg.DSN,
		MaxOpenConns:    dbCfg.MaxOpenConns,
		MaxIdleConns:    dbCfg.MaxIdleConns,
		ConnMaxLifetime: dbCfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dbCfg.Driver, err)
	}
	c.OnClose(db.Close)

	m.opts.Logger.Info().Str("driver", db.Driver()).Msg("database connected")
	return db, nil
}
