package memory

import (
	"context"
	"sync"

	domain "user-file-service/internal/domain/user"
)

// Store is an in-memory user collection store. It copies on every Load and
// Save so callers never share slices with the stored state.
type Store struct {
	mu    sync.RWMutex
	users domain.Collection
	saves int
	err   error
}

// NewStore creates an in-memory store seeded with the given users.
func NewStore(seed ...domain.User) *Store {
	return &Store{users: domain.Collection(seed).Clone()}
}

// Load returns a copy of the stored collection.
func (s *Store) Load(_ context.Context) (domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.Clone(), nil
}

// Save replaces the stored collection with a copy of users.
func (s *Store) Save(_ context.Context, users domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.users = users.Clone()
	s.saves++
	return nil
}

// Saves reports how many successful Save calls the store has seen.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// FailSaves makes subsequent Save calls return err. Pass nil to clear.
func (s *Store) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
