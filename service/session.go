package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/logger"
	"github.com/layer-3/dicer/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshTimeout  = 10 * time.Second
	DefaultRefreshAttempts = 2
	DefaultRetryBackoff    = 200 * time.Millisecond
)

// SessionService owns login, token refresh and logout of the client session
type SessionService struct {
	tokens    *TokenStore
	wallets   *WalletStore
	api       ports.AuthAPI
	inspector ports.TokenInspector
	publisher ports.EventPublisher
	log       *zap.Logger

	refreshTimeout  time.Duration
	refreshAttempts uint
	retryBackoff    time.Duration

	group singleflight.Group

	// mu orders storing a refreshed token against Logout; logouts counts Logout calls.
	mu      sync.Mutex
	logouts uint64
}

// SessionOption configures a SessionService
type SessionOption func(*SessionService)

// WithRefreshPolicy bounds a refresh to attempts calls of at most timeout each
func WithRefreshPolicy(timeout time.Duration, attempts uint, wait time.Duration) SessionOption {
	return func(s *SessionService) {
		if timeout > 0 {
			s.refreshTimeout = timeout
		}
		if attempts > 0 {
			s.refreshAttempts = attempts
		}
		s.retryBackoff = wait
	}
}

// WithInspector logs the subject of refreshed tokens
func WithInspector(inspector ports.TokenInspector) SessionOption {
	return func(s *SessionService) {
		s.inspector = inspector
	}
}

// WithPublisher publishes session events
func WithPublisher(publisher ports.EventPublisher) SessionOption {
	return func(s *SessionService) {
		s.publisher = publisher
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) SessionOption {
	return func(s *SessionService) {
		s.log = logger.OrNop(log)
	}
}

// NewSessionService creates a new session service
func NewSessionService(tokens *TokenStore, wallets *WalletStore, api ports.AuthAPI, opts ...SessionOption) *SessionService {
	s := &SessionService{
		tokens:          tokens,
		wallets:         wallets,
		api:             api,
		log:             zap.NewNop(),
		refreshTimeout:  DefaultRefreshTimeout,
		refreshAttempts: DefaultRefreshAttempts,
		retryBackoff:    DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login exchanges a wallet address for an access token and stores it
func (s *SessionService) Login(ctx context.Context, address string) error {
	if !common.IsHexAddress(address) {
		return core.ErrInvalidAddress
	}

	token, err := s.api.WalletLogin(ctx, address, s.wallets.ReferralCode(ctx))
	if err != nil {
		return fmt.Errorf("wallet login failed: %w", err)
	}
	s.tokens.SetAccessToken(ctx, token)

	s.log.Info("logged in", zap.String("address", address))
	publish(ctx, s.publisher, s.log, core.SessionEvent{Type: core.EventLogin, Address: address})
	return nil
}

// RefreshToken obtains a new access token using the refresh cookie.
// Concurrent callers share one refresh. It reports true once the new token is stored;
// a rejection by the backend reports false, exhausted attempts return an error.
// ctx only bounds the caller's wait.
func (s *SessionService) RefreshToken(ctx context.Context) (bool, error) {
	ch := s.group.DoChan("refresh", func() (interface{}, error) {
		return s.refresh()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (s *SessionService) refresh() (bool, error) {
	var (
		token    string
		rejected error
	)

	s.mu.Lock()
	logouts := s.logouts
	s.mu.Unlock()

	err := retry.Retry(func(attempt uint) error {
		ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
		defer cancel()

		t, err := s.api.Refresh(ctx)
		if err != nil {
			var apiErr *core.APIError
			if errors.As(err, &apiErr) || errors.Is(err, core.ErrNoToken) {
				rejected = err
				return nil
			}
			s.log.Warn("token refresh attempt failed", zap.Uint("attempt", attempt), zap.Error(err))
			return err
		}
		token = t
		return nil
	}, strategy.Limit(s.refreshAttempts), strategy.Backoff(backoff.Linear(s.retryBackoff)))

	if err != nil {
		return false, fmt.Errorf("%w: %w", core.ErrRefreshFailed, err)
	}
	if rejected != nil {
		s.log.Info("token refresh rejected", zap.Error(rejected))
		return false, nil
	}

	s.mu.Lock()
	if s.logouts != logouts {
		s.mu.Unlock()
		s.log.Info("discarding token refreshed across a logout")
		return false, nil
	}
	s.tokens.SetAccessToken(context.Background(), token)
	s.mu.Unlock()

	event := core.SessionEvent{Type: core.EventTokenRefreshed}
	if s.inspector != nil {
		if info, err := s.inspector.Inspect(token); err == nil {
			event.Address = info.Subject
			s.log.Debug("access token refreshed", zap.String("subject", info.Subject), zap.Time("expires_at", info.ExpiresAt))
		}
	}
	publish(context.Background(), s.publisher, s.log, event)
	return true, nil
}

// Logout clears the access token, the refresh cookie reference and the wallet session.
// A refresh still in flight does not store its token afterwards.
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	s.logouts++
	s.mu.Unlock()

	address := ""
	if current, ok := s.wallets.Current(); ok {
		address = current.Address
	}

	s.tokens.ClearAll(ctx)
	s.wallets.Clear(ctx)

	s.log.Info("logged out", zap.String("address", address))
	publish(ctx, s.publisher, s.log, core.SessionEvent{Type: core.EventLogout, Address: address})
}

// IsLoggedIn reports whether an access token is stored
func (s *SessionService) IsLoggedIn(ctx context.Context) bool {
	return s.tokens.HasAccessToken(ctx)
}
