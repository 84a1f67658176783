package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/dicer/ports"
)

// MemoryStore is an in-memory revocation list for refresh tokens
type MemoryStore struct {
	invalidatedTokens map[string]time.Time
	mu                sync.Mutex
}

// NewMemoryStore creates a new in-memory revocation store
func NewMemoryStore() ports.Store {
	return &MemoryStore{
		invalidatedTokens: make(map[string]time.Time),
	}
}

// InvalidateToken marks a refresh token as invalidated until ttl elapses
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	until := time.Now().Add(ttl)
	if current, ok := s.invalidatedTokens[tokenID]; ok && current.After(until) {
		return nil
	}
	s.invalidatedTokens[tokenID] = until
	return nil
}

// ConsumeToken revokes tokenID unless it is already revoked and reports whether this call revoked it
func (s *MemoryStore) ConsumeToken(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if until, ok := s.invalidatedTokens[tokenID]; ok && now.Before(until) {
		return false, nil
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	s.invalidatedTokens[tokenID] = now.Add(ttl)
	return true, nil
}

// IsTokenInvalidated checks if a refresh token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	if time.Now().After(until) {
		delete(s.invalidatedTokens, tokenID)
		return false, nil
	}

	return true, nil
}
