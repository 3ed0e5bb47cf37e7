// Package fsstore is the local-filesystem backend for internal/store: each
// key maps to a response.json file under a configured root directory,
// matching the cache/<key>/response.json blob layout from spec §4.5.
package fsstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/camrail/dejafoo/internal/store"
)

// Store writes one file per key under Root.
type Store struct {
	root string
}

// New returns a Store rooted at dir. The directory is created on first
// write if it does not already exist.
func New(dir string) *Store {
	return &Store{root: dir}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *Store) Put(_ context.Context, key string, e *store.Entry) error {
	blob, err := store.Marshal(e)
	if err != nil {
		return err
	}
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	// Rename is atomic on the same filesystem: readers never observe a
	// partially written entry (spec §4.6 cancellation invariant).
	return os.Rename(tmp, p)
}

func (s *Store) Get(_ context.Context, key string) (*store.Entry, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return store.Unmarshal(data)
}

func (s *Store) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
