// Package entity collects the entity metadata modules contribute at startup.
//
// Each module that owns tables exposes a PathProvider. The provided paths point at
// embedded migration directories laid out as <Dir>/<driver>/<version>.sql; the
// storage adapter applies them in collection order.
package entity

import (
	"fmt"
	"io/fs"
	"sync"
)

// Path locates one entity's schema files.
type Path struct {
	Module string
	Name   string
	FS     fs.FS
	Dir    string
}

// Key uniquely identifies a path across modules.
func (p Path) Key() string {
	return p.Module + "/" + p.Name
}

// PathProvider exposes a module's entity paths.
type PathProvider interface {
	EntityPaths() []Path
}

// PathProviderFunc adapts a function to PathProvider.
type PathProviderFunc func() []Path

// EntityPaths calls f.
func (f PathProviderFunc) EntityPaths() []Path {
	return f()
}

// Collector accumulates entity paths in the order modules are loaded.
type Collector struct {
	mu    sync.RWMutex
	paths []Path
	seen  map[string]bool
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[string]bool)}
}

// Collect adds every path of p. Paths with a missing FS or a key that was already
// collected are rejected.
func (c *Collector) Collect(p PathProvider) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, path := range p.EntityPaths() {
		if path.FS == nil {
			return fmt.Errorf("entity %q: no filesystem", path.Key())
		}
		if c.seen[path.Key()] {
			return fmt.Errorf("entity %q already collected", path.Key())
		}
		c.seen[path.Key()] = true
		c.paths = append(c.paths, path)
	}
	return nil
}

// Paths returns the collected paths in collection order.
func (c *Collector) Paths() []Path {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Path(nil), c.paths...)
}

// Len returns the number of collected paths.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.paths)
}
