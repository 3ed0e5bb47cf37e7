// Package memstore is the in-process map backend for internal/store: the
// default for tests and local dev, with no durability across restarts.
package memstore

import (
	"context"
	"sync"

	"github.com/camrail/dejafoo/internal/store"
)

// Store is a concurrency-safe in-memory object store.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) Put(_ context.Context, key string, e *store.Entry) error {
	blob, err := store.Marshal(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = blob
	return nil
}

func (s *Store) Get(_ context.Context, key string) (*store.Entry, error) {
	s.mu.RLock()
	blob, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return store.Unmarshal(blob)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}
