package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/ports"
)

type providerReply struct {
	accounts []string
	err      error
}

type fakeProvider struct {
	mu      sync.Mutex
	replies map[string]providerReply
	calls   map[string]int
}

func newFakeProvider(replies map[string]providerReply) *fakeProvider {
	return &fakeProvider{replies: replies, calls: map[string]int{}}
}

func (p *fakeProvider) Request(_ context.Context, method string, _ ...any) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls[method]++
	reply, ok := p.replies[method]
	if !ok {
		return nil, &core.ProviderError{Code: -32601, Message: "method not found"}
	}
	if reply.err != nil {
		return nil, reply.err
	}
	return json.Marshal(reply.accounts)
}

func (p *fakeProvider) WalletType() string {
	return "injected"
}

func (p *fakeProvider) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

type fakeSDK struct {
	id       int32
	provider *fakeProvider
}

func (s *fakeSDK) WalletProvider() ports.WalletProvider {
	return s.provider
}

type fakeInitializer struct {
	provider *fakeProvider
	delay    time.Duration
	failures int32

	calls atomic.Int32
}

func (i *fakeInitializer) Init(ctx context.Context, _ core.SDKConfig) (ports.WalletSDK, error) {
	n := i.calls.Add(1)
	if i.delay > 0 {
		select {
		case <-time.After(i.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n <= i.failures {
		return nil, &core.ProviderError{Code: core.CodeInternalRPC, Message: "sdk unavailable"}
	}
	provider := i.provider
	if provider == nil {
		provider = newFakeProvider(nil)
	}
	return &fakeSDK{id: n, provider: provider}, nil
}

type fakeAuthAPI struct {
	mu          sync.Mutex
	loginToken  string
	loginErr    error
	refreshes   []refreshReply
	refreshWait time.Duration

	logins       []string
	referrals    []string
	refreshCalls atomic.Int32
}

type refreshReply struct {
	token string
	err   error
}

func (a *fakeAuthAPI) WalletLogin(_ context.Context, address, referralCode string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logins = append(a.logins, address)
	a.referrals = append(a.referrals, referralCode)
	if a.loginErr != nil {
		return "", a.loginErr
	}
	return a.loginToken, nil
}

func (a *fakeAuthAPI) Refresh(ctx context.Context) (string, error) {
	n := int(a.refreshCalls.Add(1))
	if a.refreshWait > 0 {
		select {
		case <-time.After(a.refreshWait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.refreshes) == 0 {
		return "", core.ErrNoToken
	}
	idx := n - 1
	if idx >= len(a.refreshes) {
		idx = len(a.refreshes) - 1
	}
	return a.refreshes[idx].token, a.refreshes[idx].err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.SessionEvent
}

func (p *recordingPublisher) PublishSessionEvent(_ context.Context, event core.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []core.SessionEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]core.SessionEventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type fakeCookies struct {
	removed []string
}

func (c *fakeCookies) RemoveCookie(name string) {
	c.removed = append(c.removed, name)
}
