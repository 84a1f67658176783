package service

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/logger"
	"github.com/layer-3/dicer/ports"
	"go.uber.org/zap"
)

// WalletSession is the wallet the client is currently connected with
type WalletSession struct {
	Address    string
	Provider   ports.WalletProvider
	WalletType string
}

// WalletStore holds the single active WalletSession and its persisted form
type WalletStore struct {
	kv  ports.KVStore
	log *zap.Logger

	mu      sync.RWMutex
	current *WalletSession
}

// NewWalletStore creates a WalletStore with no active session
func NewWalletStore(kv ports.KVStore, log *zap.Logger) *WalletStore {
	return &WalletStore{
		kv:  kv,
		log: logger.OrNop(log),
	}
}

// Current returns the active session
func (s *WalletStore) Current() (WalletSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return WalletSession{}, false
	}
	return *s.current, true
}

// Adopt makes session the active one, replacing any previous session.
// With persist set, the address and connected flag are written to storage.
func (s *WalletStore) Adopt(ctx context.Context, session WalletSession, persist bool) {
	s.mu.Lock()
	s.current = &session
	s.mu.Unlock()

	if !persist {
		return
	}
	if err := s.kv.Set(ctx, KeyWalletAddress, session.Address); err != nil {
		s.log.Error("failed to persist wallet address", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, KeyWalletConnected, strconv.FormatBool(true)); err != nil {
		s.log.Error("failed to persist wallet connected flag", zap.Error(err))
	}
}

// Persisted returns the stored wallet address when it is flagged as connected
func (s *WalletStore) Persisted(ctx context.Context) (string, bool) {
	address, ok := s.read(ctx, KeyWalletAddress)
	if !ok || address == "" {
		return "", false
	}
	flag, ok := s.read(ctx, KeyWalletConnected)
	if !ok {
		return "", false
	}
	connected, err := strconv.ParseBool(flag)
	if err != nil || !connected {
		return "", false
	}
	return address, true
}

// Clear drops the active session and the persisted wallet state
func (s *WalletStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	s.ClearPersisted(ctx)
}

// ClearPersisted removes the persisted wallet state only
func (s *WalletStore) ClearPersisted(ctx context.Context) {
	for _, key := range []string{KeyWalletAddress, KeyWalletConnected} {
		if err := s.kv.Remove(ctx, key); err != nil {
			s.log.Warn("failed to remove wallet state", zap.String("key", key), zap.Error(err))
		}
	}
}

// ReferralCode returns the stored referral code, empty if none
func (s *WalletStore) ReferralCode(ctx context.Context) string {
	code, _ := s.read(ctx, KeyReferralCode)
	return code
}

// SetReferralCode stores the referral code sent with the next wallet login
func (s *WalletStore) SetReferralCode(ctx context.Context, code string) {
	if err := s.kv.Set(ctx, KeyReferralCode, code); err != nil {
		s.log.Warn("failed to store referral code", zap.Error(err))
	}
}

func (s *WalletStore) read(ctx context.Context, key string) (string, bool) {
	value, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.log.Warn("failed to read wallet state", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return value, true
}
