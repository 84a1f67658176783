package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/ports"
)

const AudienceAccess = "session:access"
const AudienceRefresh = "session:refresh"

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// SessionToAccessToken converts a Session to an access JWT token
func (j *JWTTokenizer) SessionToAccessToken(session *core.Session) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.AccessExpiry),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		RefreshID: session.RefreshID,
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signedToken, nil
}

// SessionToRefreshToken converts a Session to a refresh JWT token
func (j *JWTTokenizer) SessionToRefreshToken(session *core.Session) (string, error) {
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address,
			ID:        session.RefreshID, // the refresh token is identified by RefreshID
			ExpiresAt: jwt.NewNumericDate(session.RefreshExpiry),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceRefresh},
		},
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signedToken, nil
}

// AccessTokenToSession parses an access token and returns the associated session
func (j *JWTTokenizer) AccessTokenToSession(tokenStr string) (*core.Session, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims, AudienceAccess); err != nil {
		return nil, err
	}

	return &core.Session{
		ID:           claims.ID,
		Address:      claims.Subject,
		IssuedAt:     claims.IssuedAt.Time,
		AccessExpiry: claims.ExpiresAt.Time,
		RefreshID:    claims.RefreshID,
	}, nil
}

// RefreshTokenToSession parses a refresh token and returns the associated session.
// Only the refresh half of the session is populated.
func (j *JWTTokenizer) RefreshTokenToSession(tokenStr string) (*core.Session, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, claims, AudienceRefresh); err != nil {
		return nil, err
	}

	return &core.Session{
		Address:       claims.Subject,
		IssuedAt:      claims.IssuedAt.Time,
		RefreshExpiry: claims.ExpiresAt.Time,
		RefreshID:     claims.ID,
	}, nil
}

func (j *JWTTokenizer) parse(tokenStr string, claims jwt.Claims, audience string) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return core.ErrTokenExpired
		}
		return fmt.Errorf("failed to parse token: %w", core.ErrInvalidToken)
	}
	if !token.Valid {
		return core.ErrInvalidToken
	}
	return nil
}
