package wallet

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/layer-3/dicer/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedError struct {
	code int
	msg  string
}

func (e codedError) Error() string  { return e.msg }
func (e codedError) ErrorCode() int { return e.code }

type ethService struct {
	chainID    int64
	accounts   []string
	requestErr error
}

func (s *ethService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(s.chainID))
}

func (s *ethService) Accounts() []string {
	return s.accounts
}

func (s *ethService) RequestAccounts() ([]string, error) {
	if s.requestErr != nil {
		return nil, s.requestErr
	}
	return s.accounts, nil
}

func inProcInitializer(t *testing.T, svc *ethService) *RPCInitializer {
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", svc))
	t.Cleanup(server.Stop)

	return NewRPCInitializer("", WithWalletType("test-wallet"), WithDialer(func(ctx context.Context) (*rpc.Client, error) {
		return rpc.DialInProc(server), nil
	}))
}

func TestInitAndRequest(t *testing.T) {
	svc := &ethService{chainID: 8453, accounts: []string{"0xAbC0000000000000000000000000000000000001"}}
	sdk, err := inProcInitializer(t, svc).Init(context.Background(), core.SDKConfig{ClientID: "dicer", ChainID: 8453})
	require.NoError(t, err)
	defer sdk.(*SDK).Close()

	assert.Equal(t, "dicer", sdk.(*SDK).ClientID())
	provider := sdk.WalletProvider()
	assert.Equal(t, "test-wallet", provider.WalletType())

	raw, err := provider.Request(context.Background(), "eth_accounts")
	require.NoError(t, err)

	var accounts []string
	require.NoError(t, json.Unmarshal(raw, &accounts))
	assert.Equal(t, svc.accounts, accounts)
}

func TestInitRejectsOtherChain(t *testing.T) {
	_, err := inProcInitializer(t, &ethService{chainID: 1}).Init(context.Background(), core.SDKConfig{ChainID: 8453})
	assert.ErrorIs(t, err, core.ErrChainMismatch)
}

func TestProviderErrorCodes(t *testing.T) {
	cases := []struct {
		name         string
		err          error
		userRejected bool
		internal     bool
	}{
		{"user rejected", codedError{core.CodeUserRejected, "user rejected the request"}, true, false},
		{"internal", codedError{core.CodeInternalRPC, "internal error"}, false, true},
		{"other", codedError{-32000, "resource unavailable"}, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &ethService{requestErr: tc.err}
			sdk, err := inProcInitializer(t, svc).Init(context.Background(), core.SDKConfig{})
			require.NoError(t, err)

			_, err = sdk.WalletProvider().Request(context.Background(), "eth_requestAccounts")
			require.Error(t, err)

			var perr *core.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.userRejected, core.IsUserRejected(err))
			assert.Equal(t, tc.internal, core.IsInternalRPC(err))
		})
	}
}
