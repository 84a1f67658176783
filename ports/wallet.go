package ports

import (
	"context"
	"encoding/json"

	"github.com/layer-3/dicer/core"
)

// WalletProvider is the JSON-RPC surface exposed by the wallet SDK
type WalletProvider interface {
	// Request performs a JSON-RPC call such as eth_accounts or eth_requestAccounts.
	// Provider failures are returned as *core.ProviderError.
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)

	// WalletType returns a label for the connected wallet
	WalletType() string
}

// WalletSDK is a constructed wallet SDK instance
type WalletSDK interface {
	WalletProvider() WalletProvider
}

// SDKInitializer constructs wallet SDK instances
type SDKInitializer interface {
	Init(ctx context.Context, cfg core.SDKConfig) (WalletSDK, error)
}
