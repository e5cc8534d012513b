// Package container provides the typed dependency container that module
// descriptors populate at startup.
//
// Bindings are keyed by Go type and are add-only: once a module binds a type, no
// other module can replace it. Factories run lazily on first Resolve (or eagerly via
// Build) and the result is cached as a singleton.
//
// Usage:
//
//	c := container.New()
//	scoped := c.For("common")
//	container.Instance[ports.Clock](scoped, clock.Real{})
//	container.Provide(scoped, func(c *container.Container) (*app.UserService, error) {
//		store, err := container.Resolve[ports.UserStore](c)
//		...
//	})
//
//	svc, err := container.Resolve[*app.UserService](c)
package container

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrAlreadyBound is returned when a type is bound twice.
	ErrAlreadyBound = errors.New("already bound")
	// ErrNotBound is returned when resolving a type nobody bound.
	ErrNotBound = errors.New("not bound")
	// ErrCycle is returned when factories depend on each other.
	ErrCycle = errors.New("dependency cycle")
)

// Binding describes a registered type for diagnostics.
type Binding struct {
	Type   string
	Module string
	Built  bool
}

type binding struct {
	key      reflect.Type
	module   string
	factory  func(*Container) (any, error)
	value    any
	built    bool
	building bool
}

type store struct {
	mu       sync.Mutex
	bindings map[reflect.Type]*binding
	order    []reflect.Type
	closers  []func() error
}

// Container is a view over a shared binding store. Views created with For record
// the owning module on every binding they add.
type Container struct {
	s      *store
	module string
}

// New creates an empty container.
func New() *Container {
	return &Container{
		s: &store{bindings: make(map[reflect.Type]*binding)},
	}
}

// For returns a view of the same container that attributes new bindings to module.
func (c *Container) For(module string) *Container {
	return &Container{s: c.s, module: module}
}

// Module returns the module this view binds for ("" for the root view).
func (c *Container) Module() string {
	return c.module
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (c *Container) bind(key reflect.Type, b *binding) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if existing, ok := c.s.bindings[key]; ok {
		return fmt.Errorf("bind %s for module %q: %w by module %q", key, c.module, ErrAlreadyBound, existing.module)
	}
	b.key = key
	b.module = c.module
	c.s.bindings[key] = b
	c.s.order = append(c.s.order, key)
	return nil
}

// Provide binds T to a lazily evaluated factory.
func Provide[T any](c *Container, factory func(*Container) (T, error)) error {
	if factory == nil {
		return fmt.Errorf("bind %s: nil factory", keyOf[T]())
	}
	return c.bind(keyOf[T](), &binding{
		factory: func(c *Container) (any, error) {
			return factory(c)
		},
	})
}

// Instance binds T to an already constructed value.
func Instance[T any](c *Container, value T) error {
	return c.bind(keyOf[T](), &binding{value: value, built: true})
}

// Resolve returns the value bound to T, building it on first use.
//
// Resolution of a binding that is still being built reports ErrCycle, so callers
// must not resolve the same unbuilt binding from several goroutines. Build the
// container at startup to make later lookups read-only.
func Resolve[T any](c *Container) (T, error) {
	var zero T
	v, err := c.resolve(keyOf[T]())
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("resolve %s: bound value has type %T", keyOf[T](), v)
	}
	return typed, nil
}

// MustResolve is Resolve for composition roots where a missing binding is a bug.
func MustResolve[T any](c *Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(err)
	}
	return v
}

// Has reports whether T is bound.
func Has[T any](c *Container) bool {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	_, ok := c.s.bindings[keyOf[T]()]
	return ok
}

func (c *Container) resolve(key reflect.Type) (any, error) {
	c.s.mu.Lock()
	b, ok := c.s.bindings[key]
	if !ok {
		c.s.mu.Unlock()
		return nil, fmt.Errorf("resolve %s: %w", key, ErrNotBound)
	}
	if b.built {
		v := b.value
		c.s.mu.Unlock()
		return v, nil
	}
	if b.building {
		c.s.mu.Unlock()
		return nil, fmt.Errorf("resolve %s: %w", key, ErrCycle)
	}
	b.building = true
	c.s.mu.Unlock()

	// Factories resolve their own dependencies, so the lock is released here.
	v, err := b.factory(&Container{s: c.s, module: b.module})

	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	b.building = false
	if err != nil {
		return nil, fmt.Errorf("build %s (module %q): %w", key, b.module, err)
	}
	b.value = v
	b.built = true
	return v, nil
}

// Build constructs every binding in registration order and returns the first
// failure.
func (c *Container) Build() error {
	c.s.mu.Lock()
	keys := append([]reflect.Type(nil), c.s.order...)
	c.s.mu.Unlock()

	for _, key := range keys {
		if _, err := c.resolve(key); err != nil {
			return err
		}
	}
	return nil
}

// Bindings lists bindings in registration order.
func (c *Container) Bindings() []Binding {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	result := make([]Binding, 0, len(c.s.order))
	for _, key := range c.s.order {
		b := c.s.bindings[key]
		result = append(result, Binding{Type: key.String(), Module: b.module, Built: b.built})
	}
	return result
}

// OnClose registers a cleanup function run by Close.
func (c *Container) OnClose(fn func() error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.closers = append(c.s.closers, fn)
}

// Close runs cleanup functions in reverse registration order.
func (c *Container) Close() error {
	c.s.mu.Lock()
	closers := c.s.closers
	c.s.closers = nil
	c.s.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
