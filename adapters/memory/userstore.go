// Package memory provides in-memory implementations of storage ports, used in
// tests and when the database driver is "memory".
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/artpar/crudgate/domain/user"
	"github.com/artpar/crudgate/ports"
)

// UserStore is an in-memory implementation of ports.UserStore.
type UserStore struct {
	mu      sync.RWMutex
	nextID  int64
	users   map[int64]user.User
	byEmail map[string]int64
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[int64]user.User),
		byEmail: make(map[string]int64),
	}
}

func (s *UserStore) Get(_ context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, ports.ErrNotFound
	}
	return u, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return user.User{}, ports.ErrNotFound
	}
	return s.users[id], nil
}

func (s *UserStore) Create(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[u.Email]; exists {
		return user.User{}, ports.ErrDuplicate
	}
	s.nextID++
	u.ID = s.nextID
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u, nil
}

func (s *UserStore) Update(_ context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[u.ID]
	if !ok {
		return ports.ErrNotFound
	}
	if owner, exists := s.byEmail[u.Email]; exists && owner != u.ID {
		return ports.ErrDuplicate
	}
	delete(s.byEmail, old.Email)
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *UserStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return false, nil
	}
	delete(s.users, id)
	delete(s.byEmail, u.Email)
	return true, nil
}

func (s *UserStore) List(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *UserStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

var _ ports.UserStore = (*UserStore)(nil)
