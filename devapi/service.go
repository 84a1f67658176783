package devapi

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/logger"
	"github.com/layer-3/dicer/ports"
	"go.uber.org/zap"
)

const (
	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 5 * 24 * time.Hour
)

// AuthService issues and rotates the wallet sessions of the dev API
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	eventPub  ports.EventPublisher
	log       *zap.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// AuthOption configures an AuthService
type AuthOption func(*AuthService)

// WithTTLs sets the lifetime of access and refresh tokens
func WithTTLs(access, refresh time.Duration) AuthOption {
	return func(s *AuthService) {
		if access > 0 {
			s.accessTTL = access
		}
		if refresh > 0 {
			s.refreshTTL = refresh
		}
	}
}

// WithAuthLogger sets the logger
func WithAuthLogger(log *zap.Logger) AuthOption {
	return func(s *AuthService) {
		s.log = logger.OrNop(log)
	}
}

// NewAuthService creates a new authentication service. eventPub may be nil.
func NewAuthService(tokenizer ports.Tokenizer, store ports.Store, eventPub ports.EventPublisher, opts ...AuthOption) *AuthService {
	s := &AuthService{
		tokenizer:  tokenizer,
		store:      store,
		eventPub:   eventPub,
		log:        zap.NewNop(),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshTTL returns the lifetime of refresh tokens
func (s *AuthService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// Login opens a session for a wallet address and returns its access and refresh tokens
func (s *AuthService) Login(ctx context.Context, address string) (string, string, error) {
	if !common.IsHexAddress(address) {
		return "", "", core.ErrInvalidAddress
	}

	accessToken, refreshToken, err := s.issue(s.newSession(address))
	if err != nil {
		return "", "", err
	}

	s.publish(ctx, core.EventLogin, address)
	return accessToken, refreshToken, nil
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (string, string, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}

	if time.Now().After(session.RefreshExpiry) {
		return "", "", core.ErrTokenExpired
	}

	// The old refresh token stays revoked for the rest of its lifetime.
	consumed, err := s.store.ConsumeToken(ctx, session.RefreshID, time.Until(session.RefreshExpiry))
	if err != nil {
		return "", "", fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if !consumed {
		return "", "", core.ErrTokenInvalidated
	}

	accessToken, refreshToken, err := s.issue(s.newSession(session.Address))
	if err != nil {
		return "", "", err
	}

	s.publish(ctx, core.EventTokenRefreshed, session.Address)
	return accessToken, refreshToken, nil
}

// Logout invalidates a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}

	// Expired tokens are revoked for an hour in case of clock skew.
	remaining := time.Hour
	if time.Now().Before(session.RefreshExpiry) {
		remaining = time.Until(session.RefreshExpiry)
	}
	if err := s.store.InvalidateToken(ctx, session.RefreshID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	s.publish(ctx, core.EventLogout, session.Address)
	return nil
}

// ValidateAccessToken returns the session of a valid, unrevoked access token
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if time.Now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	// Logging out revokes the refresh token and every access token issued with it.
	if session.RefreshID != "" {
		invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

func (s *AuthService) newSession(address string) *core.Session {
	now := time.Now()
	return &core.Session{
		ID:            uuid.New().String(),
		Address:       address,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}
}

func (s *AuthService) issue(session *core.Session) (string, string, error) {
	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

func (s *AuthService) publish(ctx context.Context, t core.SessionEventType, address string) {
	if s.eventPub == nil {
		return
	}
	event := core.SessionEvent{Type: t, Address: address, OccurredAt: time.Now().UTC()}
	if err := s.eventPub.PublishSessionEvent(ctx, event); err != nil {
		// The session change already happened; the event is informational.
		s.log.Warn("failed to publish session event", zap.String("type", string(t)), zap.Error(err))
	}
}
