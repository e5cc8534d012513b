package module

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/crudgate/core/container"
	"github.com/artpar/crudgate/core/entity"
	"github.com/artpar/crudgate/core/routing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ErrAlreadyInitialized is returned when Initialize runs twice.
var ErrAlreadyInitialized = errors.New("modules already initialized")

// Status tracks how far a module got through bootstrap.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusServices   Status = "services_registered"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// State is the bootstrap outcome for one module.
type State struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Status   Status `json:"status"`
	Prefix   string `json:"prefix,omitempty"`
	Entities int    `json:"entities"`
	Error    string `json:"error,omitempty"`
}

// Report summarizes a bootstrap run.
type Report struct {
	Modules     []State       `json:"modules"`
	Bindings    int           `json:"bindings"`
	Routes      int           `json:"routes"`
	Entities    int           `json:"entities"`
	Duration    time.Duration `json:"duration"`
	Initialized bool          `json:"initialized"`
}

// Orchestrator applies every registered descriptor exactly once.
type Orchestrator struct {
	registry *Registry
	loaders  Loaders
	logger   zerolog.Logger

	initialized bool
	states      map[string]*State
	report      Report
}

// NewOrchestrator creates an orchestrator over reg.
func NewOrchestrator(reg *Registry, loaders Loaders, logger zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		registry: reg,
		loaders:  loaders,
		logger:   logger,
		states:   make(map[string]*State),
	}
	for _, d := range reg.All() {
		o.states[d.Name()] = &State{Name: d.Name(), Priority: d.Priority(), Status: StatusRegistered}
	}
	return o
}

// Initialize registers services, mounts routes and collects entity paths.
// Any failure aborts the bootstrap; there is no partially initialized mode.
func (o *Orchestrator) Initialize(ctx context.Context, c *container.Container, r chi.Router) error {
	if o.initialized {
		return ErrAlreadyInitialized
	}
	o.initialized = true
	start := time.Now()

	o.logger.Info().Int("modules", o.registry.Len()).Msg("initializing modules")

	loaded, err := o.loaders.Services.Load(ctx, o.registry, c)
	o.mark(loaded, StatusServices)
	if err != nil {
		return o.fail(err)
	}
	if err := c.Build(); err != nil {
		return o.fail(fmt.Errorf("build services: %w", err))
	}

	if _, err := o.loaders.Routes.Load(ctx, o.registry, r); err != nil {
		return o.fail(err)
	}
	for _, e := range o.loaders.Routes.Manager.Loaded() {
		if s, ok := o.states[e.Module]; ok {
			s.Prefix = e.Prefix
		}
	}

	if _, err := o.loaders.Entities.Load(ctx, o.registry); err != nil {
		return o.fail(err)
	}
	for _, p := range o.loaders.Entities.Collector.Paths() {
		if s, ok := o.states[p.Module]; ok {
			s.Entities++
		}
	}

	for _, d := range o.registry.All() {
		o.states[d.Name()].Status = StatusReady
	}

	o.report = o.buildReport(c, time.Since(start))
	o.logger.Info().
		Int("modules", len(o.report.Modules)).
		Int("bindings", o.report.Bindings).
		Int("routes", o.report.Routes).
		Int("entities", o.report.Entities).
		Dur("duration", o.report.Duration).
		Msg("modules initialized")
	return nil
}

func (o *Orchestrator) mark(names []string, status Status) {
	for _, name := range names {
		if s, ok := o.states[name]; ok {
			s.Status = status
		}
	}
}

func (o *Orchestrator) fail(err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		if s, ok := o.states[le.Module]; ok {
			s.Status = StatusFailed
			s.Error = le.Err.Error()
		}
		o.logger.Error().Err(le.Err).Str("module", le.Module).Str("phase", string(le.Phase)).Msg("module bootstrap failed")
	} else {
		o.logger.Error().Err(err).Msg("module bootstrap failed")
	}
	o.report = o.buildReport(nil, 0)
	return fmt.Errorf("initialize modules: %w", err)
}

func (o *Orchestrator) buildReport(c *container.Container, d time.Duration) Report {
	rep := Report{
		Duration:    d,
		Routes:      len(o.loaders.Routes.Manager.Loaded()),
		Entities:    o.loaders.Entities.Collector.Len(),
		Initialized: c != nil,
	}
	if c != nil {
		rep.Bindings = len(c.Bindings())
	}
	for _, desc := range o.registry.SortedByPriority() {
		rep.Modules = append(rep.Modules, *o.states[desc.Name()])
	}
	return rep
}

// Report returns the outcome of the last Initialize call. Before Initialize, all
// modules are reported as registered.
func (o *Orchestrator) Report() Report {
	if !o.initialized {
		return o.buildReport(nil, 0)
	}
	return o.report
}

// Registry returns the descriptor registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Routes returns the mounted route providers.
func (o *Orchestrator) Routes() []routing.Entry {
	return o.loaders.Routes.Manager.Loaded()
}

// EntityPaths returns the collected entity paths.
func (o *Orchestrator) EntityPaths() []entity.Path {
	return o.loaders.Entities.Collector.Paths()
}
