package service

import (
	"context"
	"errors"

	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/logger"
	"github.com/layer-3/dicer/ports"
	"go.uber.org/zap"
)

// Storage keys of the durable client state
const (
	KeyAccessToken     = "accessToken"
	KeyWalletAddress   = "walletAddress"
	KeyWalletConnected = "isWalletConnected"
	KeyReferralCode    = "referralCode"

	// RefreshCookieName is the cookie the backend keeps the refresh token in
	RefreshCookieName = "refreshToken"
)

// TokenStore keeps the access token in durable storage.
// Storage failures are logged and read as an absent token.
type TokenStore struct {
	kv      ports.KVStore
	cookies ports.CookieRemover
	log     *zap.Logger
}

// NewTokenStore creates a TokenStore. cookies may be nil.
func NewTokenStore(kv ports.KVStore, cookies ports.CookieRemover, log *zap.Logger) *TokenStore {
	return &TokenStore{
		kv:      kv,
		cookies: cookies,
		log:     logger.OrNop(log),
	}
}

// AccessToken returns the stored token, if any
func (s *TokenStore) AccessToken(ctx context.Context) (string, bool) {
	token, err := s.kv.Get(ctx, KeyAccessToken)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.log.Warn("failed to read access token", zap.Error(err))
		}
		return "", false
	}
	return token, token != ""
}

// SetAccessToken overwrites the stored token
func (s *TokenStore) SetAccessToken(ctx context.Context, token string) {
	if err := s.kv.Set(ctx, KeyAccessToken, token); err != nil {
		s.log.Error("failed to store access token", zap.Error(err))
	}
}

// HasAccessToken reports whether a token is stored. It does not check validity.
func (s *TokenStore) HasAccessToken(ctx context.Context) bool {
	_, ok := s.AccessToken(ctx)
	return ok
}

// RemoveAccessToken deletes the stored token
func (s *TokenStore) RemoveAccessToken(ctx context.Context) {
	if err := s.kv.Remove(ctx, KeyAccessToken); err != nil {
		s.log.Warn("failed to remove access token", zap.Error(err))
	}
}

// ClearAll removes the access token and expires the refresh cookie reference
func (s *TokenStore) ClearAll(ctx context.Context) {
	s.RemoveAccessToken(ctx)
	if s.cookies != nil {
		s.cookies.RemoveCookie(RefreshCookieName)
	}
}
