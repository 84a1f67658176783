package core

import "errors"

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidAddress   = errors.New("invalid wallet address")

	ErrNotFound       = errors.New("not found")
	ErrNoToken        = errors.New("no access token in response")
	ErrRequestFailed  = errors.New("request failed")
	ErrRefreshFailed  = errors.New("token refresh failed")
	ErrNotInitialized = errors.New("wallet sdk is not initialized")
	ErrNoAccounts     = errors.New("wallet returned no accounts")
	ErrChainMismatch  = errors.New("wallet is connected to another chain")
)
