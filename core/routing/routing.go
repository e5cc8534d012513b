// Package routing mounts module route providers onto the root router in priority
// order.
package routing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ErrAlreadyLoaded is returned when LoadAllRoutes runs twice.
var ErrAlreadyLoaded = errors.New("routes already loaded")

// Provider contributes a module's routes under a single prefix.
type Provider interface {
	Module() string
	// Priority orders providers; lower values are mounted first.
	Priority() int
	Prefix() string
	// RegisterRoutes adds routes relative to Prefix.
	RegisterRoutes(r chi.Router) error
}

// HasPriorityOver reports whether a must be mounted before b.
func HasPriorityOver(a, b Provider) bool {
	return a.Priority() < b.Priority()
}

// Entry records a mounted provider.
type Entry struct {
	Module   string `json:"module"`
	Prefix   string `json:"prefix"`
	Priority int    `json:"priority"`
}

// Manager holds route providers during startup.
type Manager struct {
	providers []Provider
	loaded    []Entry
	done      bool
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a provider. Nil providers are ignored.
func (m *Manager) Register(p Provider) {
	if p == nil {
		return
	}
	m.providers = append(m.providers, p)
}

// RegisterAll adds providers in order.
func (m *Manager) RegisterAll(providers ...Provider) {
	for _, p := range providers {
		m.Register(p)
	}
}

// ProviderForModule returns the first provider registered for module. Providers
// registered later under the same module name are never returned.
func (m *Manager) ProviderForModule(module string) (Provider, bool) {
	for _, p := range m.providers {
		if p.Module() == module {
			return p, true
		}
	}
	return nil, false
}

// Providers returns the registered providers in registration order.
func (m *Manager) Providers() []Provider {
	return append([]Provider(nil), m.providers...)
}

// Sorted returns providers stably sorted by HasPriorityOver.
func (m *Manager) Sorted() []Provider {
	sorted := m.Providers()
	sort.SliceStable(sorted, func(i, j int) bool {
		return HasPriorityOver(sorted[i], sorted[j])
	})
	return sorted
}

// LoadAllRoutes mounts every provider on r in priority order, then releases the
// providers.
func (m *Manager) LoadAllRoutes(r chi.Router) error {
	if m.done {
		return ErrAlreadyLoaded
	}

	sorted := m.Sorted()
	prefixes := make(map[string]string, len(sorted))
	for _, p := range sorted {
		prefix := NormalizePrefix(p.Prefix())
		if owner, dup := prefixes[prefix]; dup {
			return fmt.Errorf("module %q: prefix %q already claimed by module %q", p.Module(), prefix, owner)
		}
		prefixes[prefix] = p.Module()
	}

	for _, p := range sorted {
		prefix := NormalizePrefix(p.Prefix())
		if err := mount(r, prefix, p); err != nil {
			return fmt.Errorf("module %q: register routes: %w", p.Module(), err)
		}
		m.loaded = append(m.loaded, Entry{Module: p.Module(), Prefix: prefix, Priority: p.Priority()})
	}

	m.done = true
	m.providers = nil
	return nil
}

func mount(r chi.Router, prefix string, p Provider) error {
	var err error
	if prefix == "/" {
		r.Group(func(sub chi.Router) {
			err = p.RegisterRoutes(sub)
		})
		return err
	}
	r.Route(prefix, func(sub chi.Router) {
		err = p.RegisterRoutes(sub)
	})
	return err
}

// Loaded returns mounted providers in mount order.
func (m *Manager) Loaded() []Entry {
	return append([]Entry(nil), m.loaded...)
}

// NormalizePrefix returns prefix with a single leading slash and no trailing slash.
// The empty prefix normalizes to "/".
func NormalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	return "/" + prefix
}

// FuncProvider is a Provider backed by a route registration function.
type FuncProvider struct {
	Name     string
	Order    int
	Path     string
	Register func(r chi.Router) error
}

// NewProvider creates a FuncProvider.
func NewProvider(module string, priority int, prefix string, register func(r chi.Router) error) *FuncProvider {
	return &FuncProvider{Name: module, Order: priority, Path: prefix, Register: register}
}

func (p *FuncProvider) Module() string { return p.Name }
func (p *FuncProvider) Priority() int  { return p.Order }
func (p *FuncProvider) Prefix() string { return p.Path }

// RegisterRoutes calls the registration function.
func (p *FuncProvider) RegisterRoutes(r chi.Router) error {
	if p.Register == nil {
		return nil
	}
	return p.Register(r)
}
