package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/layer-3/dicer/logger"
	"go.uber.org/zap"
)

// DefaultSessionExpiredMarker is the error body text the backend uses for an expired session
const DefaultSessionExpiredMarker = "session expired"

// TokenSource provides the current access token
type TokenSource interface {
	AccessToken(ctx context.Context) (string, bool)
}

// SessionRefresher renews the session when the backend rejects the access token
type SessionRefresher interface {
	RefreshToken(ctx context.Context) (bool, error)
	Logout(ctx context.Context)
}

type retriedKey struct{}

// AuthTransport attaches the bearer token to outgoing requests and, when a
// response says the session expired, refreshes the token and retries the
// request once.
//
// A response counts as an expired session when its status is 404 or its body
// contains the expiry marker. Both checks are kept because the backend reports
// expiry either way. When the refresh fails the session is logged out and the
// original response is returned.
type AuthTransport struct {
	base      http.RoundTripper
	tokens    TokenSource
	refresher SessionRefresher
	excluded  map[string]struct{}
	marker    string
	log       *zap.Logger
}

// AuthTransportOption configures an AuthTransport
type AuthTransportOption func(*AuthTransport)

// WithBase sets the transport requests are sent with
func WithBase(base http.RoundTripper) AuthTransportOption {
	return func(t *AuthTransport) {
		t.base = base
	}
}

// WithExcludedPaths sets the URL paths that never carry the bearer token.
// Paths are matched exactly against the request URL path; use
// WithExcludedEndpoints when the API lives under a base path.
func WithExcludedPaths(paths ...string) AuthTransportOption {
	return func(t *AuthTransport) {
		t.excluded = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			t.excluded[p] = struct{}{}
		}
	}
}

// WithExcludedEndpoints excludes endpoint paths resolved against baseURL the
// same way Client resolves them, so "/api/auth/refresh" under a base URL of
// "https://host/v1" excludes "/v1/api/auth/refresh"
func WithExcludedEndpoints(baseURL *url.URL, paths ...string) AuthTransportOption {
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		resolved = append(resolved, resolvePath(baseURL, p))
	}
	return WithExcludedPaths(resolved...)
}

// WithSessionExpiredMarker sets the error body text that signals an expired session
func WithSessionExpiredMarker(marker string) AuthTransportOption {
	return func(t *AuthTransport) {
		if marker != "" {
			t.marker = marker
		}
	}
}

// WithTransportLogger sets the logger
func WithTransportLogger(log *zap.Logger) AuthTransportOption {
	return func(t *AuthTransport) {
		t.log = logger.OrNop(log)
	}
}

// NewAuthTransport creates an AuthTransport
func NewAuthTransport(tokens TokenSource, refresher SessionRefresher, opts ...AuthTransportOption) *AuthTransport {
	t := &AuthTransport{
		base:      http.DefaultTransport,
		tokens:    tokens,
		refresher: refresher,
		excluded:  map[string]struct{}{},
		marker:    DefaultSessionExpiredMarker,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	out, sent, err := t.prepare(req)
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	if retried, _ := ctx.Value(retriedKey{}).(bool); retried {
		return resp, nil
	}

	body, err := bufferBody(resp)
	if err != nil {
		return nil, err
	}
	if !t.sessionExpired(resp.StatusCode, body) {
		return resp, nil
	}

	ctx = context.WithValue(ctx, retriedKey{}, true)
	log := t.log.With(zap.String("method", req.Method), zap.String("path", req.URL.Path), zap.Int("status", resp.StatusCode))

	// A token other than the one sent means a concurrent request already refreshed.
	token, hasToken := t.tokens.AccessToken(ctx)
	if sent == "" || !hasToken || token == sent {
		ok, err := t.refresher.RefreshToken(ctx)
		if ctxErr := req.Context().Err(); ctxErr != nil {
			// The caller gave up; the shared refresh still settles the session.
			log.Debug("request cancelled while refreshing session", zap.Error(ctxErr))
			return resp, nil
		}
		token, hasToken = t.tokens.AccessToken(ctx)
		if err != nil || !ok || !hasToken {
			log.Warn("session could not be refreshed, logging out", zap.Bool("refreshed", ok), zap.Error(err))
			t.refresher.Logout(context.WithoutCancel(ctx))
			return resp, nil
		}
	}

	retry := out.Clone(ctx)
	if out.GetBody != nil {
		if retry.Body, err = out.GetBody(); err != nil {
			return resp, nil
		}
	}
	if !t.isExcluded(out.URL.Path) {
		retry.Header.Set("Authorization", "Bearer "+token)
	}

	log.Debug("session refreshed, retrying request")
	return t.base.RoundTrip(retry)
}

// prepare clones req and attaches the request id and bearer token, returning
// the token it attached. The body is buffered when it cannot be replayed for a retry.
func (t *AuthTransport) prepare(req *http.Request) (*http.Request, string, error) {
	out := req.Clone(req.Context())

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, "", fmt.Errorf("failed to buffer request body: %w", err)
		}
		out.Body = io.NopCloser(bytes.NewReader(data))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}

	if out.Header.Get("X-Request-ID") == "" {
		out.Header.Set("X-Request-ID", uuid.NewString())
	}

	if t.isExcluded(out.URL.Path) {
		return out, "", nil
	}
	token, ok := t.tokens.AccessToken(out.Context())
	if ok {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return out, token, nil
}

func (t *AuthTransport) isExcluded(path string) bool {
	_, ok := t.excluded[path]
	return ok
}

func (t *AuthTransport) sessionExpired(status int, body []byte) bool {
	if status == http.StatusNotFound {
		return true
	}
	return len(body) > 0 && strings.Contains(strings.ToLower(string(body)), strings.ToLower(t.marker))
}

// bufferBody reads the response body and puts an identical reader back
func bufferBody(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}
