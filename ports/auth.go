package ports

import "context"

// AuthAPI is the backend's authentication surface. Both calls return the new
// access token the backend sent in the Authorization response header.
type AuthAPI interface {
	WalletLogin(ctx context.Context, address, referralCode string) (string, error)
	Refresh(ctx context.Context) (string, error)
}
