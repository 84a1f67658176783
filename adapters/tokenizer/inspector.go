package tokenizer

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/ports"
)

// Inspector reads access token claims on the client, where the signing key is unknown
type Inspector struct {
	parser *jwt.Parser
}

// NewInspector creates a new Inspector
func NewInspector() ports.TokenInspector {
	return &Inspector{parser: jwt.NewParser()}
}

// Inspect returns the subject and expiry of token without verifying its signature
func (i *Inspector) Inspect(token string) (core.TokenInfo, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := i.parser.ParseUnverified(token, &claims); err != nil {
		return core.TokenInfo{}, fmt.Errorf("failed to inspect token: %w", core.ErrInvalidToken)
	}

	info := core.TokenInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
