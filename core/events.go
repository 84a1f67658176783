package core

import "time"

// SessionEventType names what happened to the client session
type SessionEventType string

const (
	EventLogin           SessionEventType = "login"
	EventLogout          SessionEventType = "logout"
	EventTokenRefreshed  SessionEventType = "token_refreshed"
	EventWalletConnected SessionEventType = "wallet_connected"
	EventWalletRestored  SessionEventType = "wallet_restored"
	EventWalletCleared   SessionEventType = "wallet_cleared"
)

// SessionEvent is published whenever the session or wallet state changes
type SessionEvent struct {
	Type       SessionEventType `json:"type"`
	Address    string           `json:"address,omitempty"`
	WalletType string           `json:"wallet_type,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
