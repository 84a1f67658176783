package ports

import (
	"context"
	"time"
)

// KVStore is the durable client-side key-value storage.
// Get returns core.ErrNotFound for a missing key.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Store is the revocation list of refresh token ids
type Store interface {
	// InvalidateToken revokes tokenID for ttl. Revoking twice is not an error.
	InvalidateToken(ctx context.Context, tokenID string, ttl time.Duration) error

	// ConsumeToken revokes tokenID for ttl and reports whether this call revoked it.
	// Of concurrent rotations presenting the same refresh token only one gets true.
	ConsumeToken(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)

	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}

// CookieRemover expires client-visible cookies such as the refresh token reference
type CookieRemover interface {
	RemoveCookie(name string)
}
