package module

import (
	"errors"
	"fmt"
	"sort"
)

// Registry holds descriptors in registration order.
// It is populated once at startup and read-only afterwards.
type Registry struct {
	descriptors []Descriptor
	byName      map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Descriptor)}
}

// Register adds a descriptor. Names must be unique.
func (r *Registry) Register(d Descriptor) error {
	if d == nil {
		return errors.New("register module: nil descriptor")
	}
	if d.Name() == "" {
		return errors.New("register module: empty name")
	}
	if _, exists := r.byName[d.Name()]; exists {
		return fmt.Errorf("module %q already registered", d.Name())
	}
	r.descriptors = append(r.descriptors, d)
	r.byName[d.Name()] = d
	return nil
}

// MustRegister registers descriptors and panics on the first failure.
func (r *Registry) MustRegister(descriptors ...Descriptor) *Registry {
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Get returns a descriptor by name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	return len(r.descriptors)
}

// All returns descriptors in registration order.
func (r *Registry) All() []Descriptor {
	return append([]Descriptor(nil), r.descriptors...)
}

// SortedByPriority returns descriptors ordered for initialization. Equal
// priorities keep registration order, so the result is a deterministic total order.
func (r *Registry) SortedByPriority() []Descriptor {
	sorted := r.All()
	sort.SliceStable(sorted, func(i, j int) bool {
		return HasPriorityOver(sorted[i], sorted[j])
	})
	return sorted
}
