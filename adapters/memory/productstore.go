package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/artpar/crudgate/domain/product"
	"github.com/artpar/crudgate/ports"
)

// ProductStore is an in-memory implementation of ports.ProductStore.
type ProductStore struct {
	mu       sync.RWMutex
	nextID   int64
	products map[int64]product.Product
}

// NewProductStore creates a new in-memory product store.
func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[int64]product.Product)}
}

func (s *ProductStore) Get(_ context.Context, id int64) (product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return product.Product{}, ports.ErrNotFound
	}
	return p, nil
}

func (s *ProductStore) Create(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p.ID = s.nextID
	s.products[p.ID] = p
	return p, nil
}

func (s *ProductStore) Update(_ context.Context, p product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		return ports.ErrNotFound
	}
	s.products[p.ID] = p
	return nil
}

func (s *ProductStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return false, nil
	}
	delete(s.products, id)
	return true, nil
}

func (s *ProductStore) List(_ context.Context) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]product.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ ports.ProductStore = (*ProductStore)(nil)
