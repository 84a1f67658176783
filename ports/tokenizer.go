package ports

import "github.com/layer-3/dicer/core"

// Tokenizer converts between sessions and signed tokens
type Tokenizer interface {
	SessionToAccessToken(session *core.Session) (string, error)
	AccessTokenToSession(token string) (*core.Session, error)
	SessionToRefreshToken(session *core.Session) (string, error)
	RefreshTokenToSession(token string) (*core.Session, error)
}

// TokenInspector reads access token claims without verifying the signature
type TokenInspector interface {
	Inspect(token string) (core.TokenInfo, error)
}
