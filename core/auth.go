package core

import "time"

// Session represents a session minted by the backend for a wallet address
type Session struct {
	ID            string    // Unique session identifier
	Address       string    // Wallet address of the user
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}

// TokenInfo is what a client can learn from an access token without verifying it
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}
