package store

import (
	"context"
	"sync"

	"github.com/layer-3/dicer/core"
)

// MemoryKV is a process-local KVStore. Values survive for the lifetime of the process.
type MemoryKV struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewMemoryKV creates an empty MemoryKV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data: make(map[string]string),
	}
}

// Get retrieves a value by key
func (s *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return "", core.ErrNotFound
	}
	return value, nil
}

// Set stores a value under key, overwriting any previous value
func (s *MemoryKV) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *MemoryKV) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}
