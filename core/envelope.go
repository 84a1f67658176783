package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CodeOK is the envelope code of a successful API call
const CodeOK = "OK"

// Envelope is the response wrapper used by every backend endpoint
type Envelope struct {
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// OK reports whether the envelope signals success
func (e Envelope) OK() bool {
	return e.Code == CodeOK
}

// APIError is returned when the backend answers with a non-2xx status or a non-OK code
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return fmt.Sprintf("api error: %s", e.Code)
	}
	return fmt.Sprintf("api error: status %d", e.Status)
}

// ExtractTokenFromHeader returns the token carried by an Authorization header value.
// A "Bearer " prefix is stripped; any other non-empty value is returned as-is.
func ExtractTokenFromHeader(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

// UserMessage turns err into a message fit for display.
// API errors keep the backend message; anything else gets a generic one.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrRequestFailed) {
		return "network error, please try again"
	}
	return "something went wrong, please try again"
}
