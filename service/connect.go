package service

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/logger"
	"github.com/layer-3/dicer/ports"
	"go.uber.org/zap"
)

// WalletConnector runs the explicit connect and disconnect flows
type WalletConnector struct {
	bootstrap *Bootstrap
	wallets   *WalletStore
	sessions  *SessionService
	publisher ports.EventPublisher
	log       *zap.Logger
}

// NewWalletConnector creates a WalletConnector. publisher may be nil.
func NewWalletConnector(bootstrap *Bootstrap, wallets *WalletStore, sessions *SessionService, publisher ports.EventPublisher, log *zap.Logger) *WalletConnector {
	return &WalletConnector{
		bootstrap: bootstrap,
		wallets:   wallets,
		sessions:  sessions,
		publisher: publisher,
		log:       logger.OrNop(log),
	}
}

// Connect asks the wallet for an account, adopts it and logs in with its address
func (c *WalletConnector) Connect(ctx context.Context) (WalletSession, error) {
	sdk, err := c.bootstrap.Initialize(ctx)
	if err != nil {
		return WalletSession{}, err
	}
	provider := sdk.WalletProvider()

	accounts, err := requestAccounts(ctx, provider, MethodRequestAccounts)
	if err != nil {
		if core.IsUserRejected(err) {
			return WalletSession{}, fmt.Errorf("wallet connection cancelled: %w", err)
		}
		return WalletSession{}, fmt.Errorf("failed to connect wallet: %w", err)
	}
	if len(accounts) == 0 {
		return WalletSession{}, core.ErrNoAccounts
	}

	address := accounts[0]
	if !common.IsHexAddress(address) {
		return WalletSession{}, fmt.Errorf("%w: %s", core.ErrInvalidAddress, address)
	}

	session := WalletSession{
		Address:    address,
		Provider:   provider,
		WalletType: provider.WalletType(),
	}
	c.wallets.Adopt(ctx, session, true)

	if err := c.sessions.Login(ctx, address); err != nil {
		c.wallets.Clear(ctx)
		return WalletSession{}, err
	}

	publish(ctx, c.publisher, c.log, core.SessionEvent{
		Type:       core.EventWalletConnected,
		Address:    address,
		WalletType: session.WalletType,
	})
	return session, nil
}

// Disconnect forgets the wallet and ends the session
func (c *WalletConnector) Disconnect(ctx context.Context) {
	c.sessions.Logout(ctx)
}

// SetReferralCode stores a referral code for the next wallet login
func (c *WalletConnector) SetReferralCode(ctx context.Context, code string) {
	c.wallets.SetReferralCode(ctx, code)
}
