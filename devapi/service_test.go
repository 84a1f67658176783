package devapi

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/layer-3/dicer/adapters/store"
	"github.com/layer-3/dicer/adapters/tokenizer"
	"github.com/layer-3/dicer/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x9b2055d370f73ec7d8a03e965129118dc8f5bf83"

func newTestAuthService(t *testing.T, opts ...AuthOption) *AuthService {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return NewAuthService(tokenizer.NewJWTTokenizer(key), store.NewMemoryStore(), nil, opts...)
}

func TestAuthService_Login(t *testing.T) {
	s := newTestAuthService(t)
	ctx := context.Background()

	accessToken, refreshToken, err := s.Login(ctx, testAddress)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshToken)

	session, err := s.ValidateAccessToken(ctx, accessToken)
	require.NoError(t, err)
	assert.Equal(t, testAddress, session.Address)

	_, _, err = s.Login(ctx, "0xnothex")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	s := newTestAuthService(t)
	ctx := context.Background()

	firstAccess, firstRefresh, err := s.Login(ctx, testAddress)
	require.NoError(t, err)

	access, refresh, err := s.Refresh(ctx, firstRefresh)
	require.NoError(t, err)
	assert.NotEqual(t, firstRefresh, refresh)

	session, err := s.ValidateAccessToken(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, testAddress, session.Address)

	// the rotated token and its access tokens are revoked
	_, _, err = s.Refresh(ctx, firstRefresh)
	assert.ErrorIs(t, err, core.ErrTokenInvalidated)
	_, err = s.ValidateAccessToken(ctx, firstAccess)
	assert.ErrorIs(t, err, core.ErrTokenInvalidated)
}

func TestAuthService_ConcurrentRefreshRotatesOnce(t *testing.T) {
	s := newTestAuthService(t)
	ctx := context.Background()

	_, refresh, err := s.Login(ctx, testAddress)
	require.NoError(t, err)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = s.Refresh(ctx, refresh)
		}()
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, core.ErrTokenInvalidated)
	}
	assert.Equal(t, 1, succeeded)
}

func TestAuthService_Logout(t *testing.T) {
	s := newTestAuthService(t)
	ctx := context.Background()

	access, refresh, err := s.Login(ctx, testAddress)
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx, refresh))

	_, err = s.ValidateAccessToken(ctx, access)
	assert.ErrorIs(t, err, core.ErrTokenInvalidated)
	_, _, err = s.Refresh(ctx, refresh)
	assert.ErrorIs(t, err, core.ErrTokenInvalidated)

	assert.ErrorIs(t, s.Logout(ctx, "garbage"), core.ErrInvalidToken)
}

func TestAuthService_AccessExpiry(t *testing.T) {
	s := newTestAuthService(t, WithTTLs(time.Second, time.Hour))
	ctx := context.Background()

	access, _, err := s.Login(ctx, testAddress)
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, err = s.ValidateAccessToken(ctx, access)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}
