package core

import (
	"errors"
	"fmt"
)

// JSON-RPC error codes reported by wallet providers
const (
	// CodeUserRejected is the EIP-1193 code for a request the user declined
	CodeUserRejected = 4001

	// CodeInternalRPC is the JSON-RPC internal error code
	CodeInternalRPC = -32603
)

// SDKConfig is the fixed configuration the wallet SDK is constructed with
type SDKConfig struct {
	ClientID string
	ChainID  int64
}

// ProviderError is an error raised by the wallet provider with a JSON-RPC code
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("wallet provider error %d: %s", e.Code, e.Message)
}

// IsUserRejected reports whether err is the user declining a wallet prompt
func IsUserRejected(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.Code == CodeUserRejected
}

// IsInternalRPC reports whether err is an internal JSON-RPC fault of the provider
func IsInternalRPC(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.Code == CodeInternalRPC
}
