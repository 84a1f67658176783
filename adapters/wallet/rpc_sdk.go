// Package wallet adapts a JSON-RPC wallet endpoint to the wallet SDK ports.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/ports"
)

// DefaultWalletType is reported when no wallet type label is configured
const DefaultWalletType = "rpc"

// Dialer opens the JSON-RPC connection to the wallet
type Dialer func(ctx context.Context) (*rpc.Client, error)

// RPCInitializer constructs wallet SDK instances backed by a go-ethereum RPC client
type RPCInitializer struct {
	dial       Dialer
	walletType string
}

// Option configures an RPCInitializer
type Option func(*RPCInitializer)

// WithDialer replaces the URL dialer, e.g. with rpc.DialInProc in tests
func WithDialer(dial Dialer) Option {
	return func(i *RPCInitializer) {
		i.dial = dial
	}
}

// WithWalletType sets the wallet type label reported by providers
func WithWalletType(walletType string) Option {
	return func(i *RPCInitializer) {
		if walletType != "" {
			i.walletType = walletType
		}
	}
}

// NewRPCInitializer creates an initializer dialing url
func NewRPCInitializer(url string, opts ...Option) *RPCInitializer {
	i := &RPCInitializer{
		dial: func(ctx context.Context) (*rpc.Client, error) {
			return rpc.DialContext(ctx, url)
		},
		walletType: DefaultWalletType,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Init dials the wallet and checks that it serves the configured chain
func (i *RPCInitializer) Init(ctx context.Context, cfg core.SDKConfig) (ports.WalletSDK, error) {
	client, err := i.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to dial wallet: %w", err)
	}

	provider := &Provider{client: client, walletType: i.walletType}

	if cfg.ChainID != 0 {
		var chainID hexutil.Big
		if err := client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to read chain id: %w", providerError(err))
		}
		if (*big.Int)(&chainID).Cmp(big.NewInt(cfg.ChainID)) != 0 {
			client.Close()
			return nil, fmt.Errorf("%w: want %d, got %s", core.ErrChainMismatch, cfg.ChainID, (*big.Int)(&chainID))
		}
	}

	return &SDK{clientID: cfg.ClientID, provider: provider}, nil
}

// SDK is a wallet SDK instance
type SDK struct {
	clientID string
	provider *Provider
}

// WalletProvider returns the provider of this instance
func (s *SDK) WalletProvider() ports.WalletProvider {
	return s.provider
}

// ClientID returns the client identifier the SDK was constructed with
func (s *SDK) ClientID() string {
	return s.clientID
}

// Close releases the RPC connection
func (s *SDK) Close() {
	s.provider.client.Close()
}

// Provider forwards wallet requests over JSON-RPC
type Provider struct {
	client     *rpc.Client
	walletType string
}

// Request performs a JSON-RPC call and returns the raw result
func (p *Provider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var result json.RawMessage
	if err := p.client.CallContext(ctx, &result, method, params...); err != nil {
		return nil, providerError(err)
	}
	return result, nil
}

// WalletType returns the wallet type label
func (p *Provider) WalletType() string {
	return p.walletType
}

// providerError keeps the JSON-RPC code of err so callers can tell rejections from faults
func providerError(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &core.ProviderError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}
	return err
}
