// Package memory is an in-process store used by tests and by deployments
// that run without Redis. State does not survive a restart.
package memory

import (
	"context"
	"sync"

	apperrors "github.com/avelane/storefront-session/pkg/errors"
)

// Store holds values in a mutex guarded map.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.values[key]
	if !ok {
		return "", apperrors.NotFound("store entry", key)
	}
	return val, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}
