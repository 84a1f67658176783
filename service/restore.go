package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/logger"
	"github.com/layer-3/dicer/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Wallet JSON-RPC methods
const (
	MethodAccounts        = "eth_accounts"
	MethodRequestAccounts = "eth_requestAccounts"
)

// RestoreOutcome tells how a restoration attempt ended
type RestoreOutcome string

const (
	RestoreSkipped     RestoreOutcome = "skipped"     // nothing persisted
	RestoreMatched     RestoreOutcome = "matched"     // authorized account matches the persisted one
	RestoreReconnected RestoreOutcome = "reconnected" // user approved a reconnect
	RestoreKept        RestoreOutcome = "kept"        // user declined, persisted state left as is
	RestoreCleared     RestoreOutcome = "cleared"     // persisted state discarded
)

// WalletRestorer reattaches to the wallet the user connected in an earlier run
type WalletRestorer struct {
	wallets   *WalletStore
	publisher ports.EventPublisher
	log       *zap.Logger

	group singleflight.Group
}

// NewWalletRestorer creates a WalletRestorer. publisher may be nil.
func NewWalletRestorer(wallets *WalletStore, publisher ports.EventPublisher, log *zap.Logger) *WalletRestorer {
	return &WalletRestorer{
		wallets:   wallets,
		publisher: publisher,
		log:       logger.OrNop(log),
	}
}

// Restore checks the persisted wallet against the provider and adopts it when it
// is still authorized. Concurrent calls share one attempt. It never fails; the
// outcome is returned for logging and tests.
func (r *WalletRestorer) Restore(ctx context.Context, sdk ports.WalletSDK) RestoreOutcome {
	v, _, _ := r.group.Do("restore", func() (interface{}, error) {
		return r.restore(ctx, sdk), nil
	})
	outcome := v.(RestoreOutcome)
	r.log.Info("wallet restoration finished", zap.String("outcome", string(outcome)))
	return outcome
}

func (r *WalletRestorer) restore(ctx context.Context, sdk ports.WalletSDK) RestoreOutcome {
	persisted, ok := r.wallets.Persisted(ctx)
	if !ok {
		return RestoreSkipped
	}

	provider := sdk.WalletProvider()

	accounts, err := requestAccounts(ctx, provider, MethodAccounts)
	switch {
	case err != nil && core.IsInternalRPC(err):
		r.log.Warn("wallet cannot be verified, forgetting it", zap.Error(err))
		r.wallets.ClearPersisted(ctx)
		r.published(ctx, core.EventWalletCleared, persisted, provider)
		return RestoreCleared
	case err == nil && len(accounts) > 0 && strings.EqualFold(accounts[0], persisted):
		r.wallets.Adopt(ctx, WalletSession{
			Address:    accounts[0],
			Provider:   provider,
			WalletType: provider.WalletType(),
		}, false)
		r.published(ctx, core.EventWalletRestored, accounts[0], provider)
		return RestoreMatched
	case err != nil:
		r.log.Debug("authorized accounts unavailable, asking to reconnect", zap.Error(err))
	}

	accounts, err = requestAccounts(ctx, provider, MethodRequestAccounts)
	if err == nil && len(accounts) == 0 {
		err = core.ErrNoAccounts
	}
	if err != nil {
		if core.IsUserRejected(err) {
			r.log.Info("wallet reconnect declined by user")
			return RestoreKept
		}
		r.log.Warn("wallet reconnect failed", zap.Error(err))
		r.wallets.ClearPersisted(ctx)
		r.published(ctx, core.EventWalletCleared, persisted, provider)
		return RestoreCleared
	}

	r.wallets.Adopt(ctx, WalletSession{
		Address:    accounts[0],
		Provider:   provider,
		WalletType: provider.WalletType(),
	}, true)
	r.published(ctx, core.EventWalletRestored, accounts[0], provider)
	return RestoreReconnected
}

func (r *WalletRestorer) published(ctx context.Context, t core.SessionEventType, address string, provider ports.WalletProvider) {
	publish(ctx, r.publisher, r.log, core.SessionEvent{
		Type:       t,
		Address:    address,
		WalletType: provider.WalletType(),
	})
}

// requestAccounts calls an account-listing method and decodes the address list
func requestAccounts(ctx context.Context, provider ports.WalletProvider, method string) ([]string, error) {
	raw, err := provider.Request(ctx, method)
	if err != nil {
		return nil, err
	}
	var accounts []string
	if len(raw) == 0 || string(raw) == "null" {
		return accounts, nil
	}
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return accounts, nil
}
