// Package bootstrap is the composition root. It loads configuration, registers
// the module descriptors, initializes them against one container and one router
// and runs the HTTP server until shutdown.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	apihttp "github.com/artpar/crudgate/adapters/http"
	crudhttp "github.com/artpar/crudgate/adapters/http/crud"
	"github.com/artpar/crudgate/adapters/metrics"
	"github.com/artpar/crudgate/adapters/sqlstore"
	"github.com/artpar/crudgate/config"
	"github.com/artpar/crudgate/core/container"
	"github.com/artpar/crudgate/core/module"
	"github.com/artpar/crudgate/modules/application"
	"github.com/artpar/crudgate/modules/auth"
	"github.com/artpar/crudgate/modules/common"
	"github.com/artpar/crudgate/modules/security"
	"github.com/artpar/crudgate/modules/system"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options configures New.
type Options struct {
	// Config is required. See LoadConfig.
	Config *config.Holder
	Logger zerolog.Logger
	Build  common.BuildInfo
	// Metrics defaults to a collector on a private registry.
	Metrics *metrics.Collector
	// DB replaces the configured database. The caller closes it.
	DB *sqlstore.DB
	// SkipMigrate disables migrations regardless of database.auto_migrate.
	SkipMigrate bool
}

// App is an initialized application.
type App struct {
	Logger       zerolog.Logger
	Config       *config.Holder
	Metrics      *metrics.Collector
	Errors       *crudhttp.ErrorHandler
	Router       chi.Router
	Container    *container.Container
	Orchestrator *module.Orchestrator
	HTTPServer   *http.Server

	closeOnce sync.Once
	closeErr  error
}

// LoadConfig reads path into a reloadable holder, or reads the environment
// when path is empty or missing. The returned logger follows the loaded
// logging section.
func LoadConfig(path string) (*config.Holder, zerolog.Logger, error) {
	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := NewLogger(cfg.Logging, os.Stdout)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			holder, err := config.NewHolder(path, logger)
			if err != nil {
				return nil, logger, err
			}
			return holder, logger, nil
		}
		logger.Warn().Str("path", path).Msg("config file not found, using environment")
	}
	return config.NewStaticHolder(cfg, logger), logger, nil
}

// NewLogger builds the process logger and sets the global level.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// Modules returns the module descriptors in registration order. Route
// providers resolve their dependencies from c.
func Modules(c *container.Container, opts common.Options) []module.Descriptor {
	return []module.Descriptor{
		common.New(opts),
		system.New(c),
		auth.New(c),
		security.New(),
		application.New(c),
	}
}

// New initializes every module. Any module failure aborts startup.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	cfg := opts.Config.Get()
	logger := opts.Logger

	collector := opts.Metrics
	if collector == nil {
		collector = metrics.New()
	}
	errHandler := crudhttp.NewErrorHandler(cfg.Debug)

	c := container.New()
	registry := module.NewRegistry()
	for _, d := range Modules(c, common.Options{
		Config:  opts.Config,
		Logger:  logger,
		Metrics: collector,
		Errors:  errHandler,
		Build:   opts.Build,
		DB:      opts.DB,
	}) {
		if err := registry.Register(d); err != nil {
			return nil, err
		}
	}

	routerCfg := apihttp.RouterConfig{
		Logger:         logger,
		Errors:         errHandler,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if cfg.Metrics.Enabled {
		routerCfg.Metrics = collector
	}
	router := apihttp.NewRouter(routerCfg)

	orch := module.NewOrchestrator(registry, module.NewLoaders(logger), logger)
	if err := container.Instance(c.For("bootstrap"), &system.Runtime{Orchestrator: orch, Router: router}); err != nil {
		return nil, err
	}

	a := &App{
		Logger:       logger,
		Config:       opts.Config,
		Metrics:      collector,
		Errors:       errHandler,
		Router:       router,
		Container:    c,
		Orchestrator: orch,
	}

	if err := orch.Initialize(ctx, c, router); err != nil {
		_ = c.Close()
		return nil, err
	}

	if cfg.Database.MigrateOnStart() && !opts.SkipMigrate {
		if _, err := a.Migrate(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
	}

	report := orch.Report()
	collector.ModulesLoaded.Set(float64(len(report.Modules)))
	collector.RoutesMounted.Set(float64(report.Routes))

	a.watchConfig()

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return a, nil
}

// Migrate applies pending migrations for every collected entity path.
func (a *App) Migrate(ctx context.Context) ([]string, error) {
	db, err := container.Resolve[*sqlstore.DB](a.Container)
	if err != nil {
		return nil, err
	}
	applied, err := db.Migrate(ctx, a.Orchestrator.EntityPaths())
	if err != nil {
		return applied, fmt.Errorf("migrate: %w", err)
	}
	if len(applied) > 0 {
		a.Logger.Info().Strs("versions", applied).Msg("migrations applied")
	}
	return applied, nil
}

// watchConfig applies the hot-reloadable settings on every successful reload.
func (a *App) watchConfig() {
	a.Config.OnChange(func(cfg *config.Config) {
		a.Errors.SetDebug(cfg.Debug)
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil && cfg.Logging.Level != "" {
			zerolog.SetGlobalLevel(level)
		}
		a.Metrics.ConfigReloads.Inc()
		a.Metrics.ConfigLastReload.SetToCurrentTime()
	})
	a.Config.OnReloadError(func(error) {
		a.Metrics.ConfigReloadErrors.Inc()
	})
}

// Run serves HTTP until ctx is cancelled, SIGINT or SIGTERM arrives, or the
// listener fails. It then shuts the server down gracefully and closes the app.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.Config.Path() != "" {
		if err := a.Config.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch unavailable")
		}
	}
	a.Config.WatchSignals()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info().Msg("shutting down")

		timeout := a.Config.Get().Server.ShutdownTimeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
		return nil
	})

	err := g.Wait()
	if cerr := a.Close(); cerr != nil {
		a.Logger.Error().Err(cerr).Msg("close error")
	}
	a.Logger.Info().Msg("shutdown complete")
	return err
}

// Close stops config watching and releases container resources. Safe to call
// twice.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.Config.Stop()
		a.closeErr = a.Container.Close()
	})
	return a.closeErr
}
