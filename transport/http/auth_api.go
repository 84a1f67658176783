package http

import (
	"context"
	"net/http"

	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/ports"
)

// Default auth endpoints. Both are sent without a bearer token.
const (
	DefaultLoginPath   = "/api/auth/wallet-login"
	DefaultRefreshPath = "/api/auth/refresh"
)

// WalletLoginRequest is the body of the wallet login endpoint
type WalletLoginRequest struct {
	WalletAddress string `json:"walletAddress"`
	ReferralCode  string `json:"referralCode,omitempty"`
}

// AuthAPI calls the auth endpoints. Its Client must not use an AuthTransport,
// otherwise a failing refresh would trigger another refresh.
type AuthAPI struct {
	client      *Client
	loginPath   string
	refreshPath string
}

// NewAuthAPI creates an AuthAPI. Empty paths fall back to the defaults.
func NewAuthAPI(client *Client, loginPath, refreshPath string) ports.AuthAPI {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}
	return &AuthAPI{
		client:      client,
		loginPath:   loginPath,
		refreshPath: refreshPath,
	}
}

// WalletLogin logs in with a wallet address and returns the new access token
func (a *AuthAPI) WalletLogin(ctx context.Context, address, referralCode string) (string, error) {
	resp, err := a.client.Send(ctx, http.MethodPost, a.loginPath, WalletLoginRequest{
		WalletAddress: address,
		ReferralCode:  referralCode,
	})
	if err != nil {
		return "", err
	}
	return tokenFromHeader(resp)
}

// Refresh exchanges the refresh cookie for a new access token
func (a *AuthAPI) Refresh(ctx context.Context) (string, error) {
	resp, err := a.client.Send(ctx, http.MethodPost, a.refreshPath, nil)
	if err != nil {
		return "", err
	}
	return tokenFromHeader(resp)
}

func tokenFromHeader(resp *Response) (string, error) {
	token, ok := core.ExtractTokenFromHeader(resp.Header.Get("Authorization"))
	if !ok {
		return "", core.ErrNoToken
	}
	return token, nil
}
