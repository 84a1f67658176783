package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "", ok: false},
		{header: "   ", ok: false},
		{header: "Bearer ", ok: false},
		{header: "Bearer xyz", token: "xyz", ok: true},
		{header: "  Bearer abc.def.ghi ", token: "abc.def.ghi", ok: true},
		{header: "raw-token", token: "raw-token", ok: true},
	}

	for _, tt := range tests {
		token, ok := ExtractTokenFromHeader(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Equal(t, "no rolls left", UserMessage(fmt.Errorf("roll: %w", &APIError{Status: 400, Code: "NO_ROLLS", Message: "no rolls left"})))
	assert.Equal(t, "network error, please try again", UserMessage(fmt.Errorf("%w: dial tcp", ErrRequestFailed)))
	assert.Equal(t, "something went wrong, please try again", UserMessage(errors.New("boom")))
	assert.Equal(t, "something went wrong, please try again", UserMessage(&APIError{Status: 500}))
}

func TestAPIError(t *testing.T) {
	assert.Equal(t, "bad", (&APIError{Message: "bad"}).Error())
	assert.Equal(t, "api error: NO_ROLLS", (&APIError{Code: "NO_ROLLS"}).Error())
	assert.Equal(t, "api error: status 502", (&APIError{Status: 502}).Error())
}

func TestProviderErrors(t *testing.T) {
	rejected := fmt.Errorf("connect: %w", &ProviderError{Code: CodeUserRejected, Message: "User rejected the request."})
	internal := &ProviderError{Code: CodeInternalRPC, Message: "Internal JSON-RPC error."}

	assert.True(t, IsUserRejected(rejected))
	assert.False(t, IsInternalRPC(rejected))
	assert.True(t, IsInternalRPC(internal))
	assert.False(t, IsUserRejected(internal))
	assert.False(t, IsUserRejected(errors.New("4001")))
}
