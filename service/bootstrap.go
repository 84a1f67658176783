package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/logger"
	"github.com/layer-3/dicer/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultInitTimeout  = 15 * time.Second
	DefaultInitAttempts = 3
)

// Bootstrap constructs the wallet SDK at most once and shares the instance.
//
// The SDK moves from uninitialized to initializing to ready; a failed
// construction goes back to uninitialized so a later Initialize can retry.
// The first time the SDK becomes ready the previously connected wallet is restored.
type Bootstrap struct {
	initializer ports.SDKInitializer
	cfg         core.SDKConfig
	restorer    *WalletRestorer
	log         *zap.Logger

	timeout  time.Duration
	attempts uint
	wait     time.Duration

	group singleflight.Group

	// flight identifies the current construction. It changes when a new one
	// starts and on Reset, so callers never join a construction that already settled.
	mu           sync.Mutex
	sdk          ports.WalletSDK
	initializing bool
	restored     bool
	flight       uint64
}

// BootstrapOption configures a Bootstrap
type BootstrapOption func(*Bootstrap)

// WithInitPolicy bounds a construction to attempts calls of at most timeout each
func WithInitPolicy(timeout time.Duration, attempts uint, wait time.Duration) BootstrapOption {
	return func(b *Bootstrap) {
		if timeout > 0 {
			b.timeout = timeout
		}
		if attempts > 0 {
			b.attempts = attempts
		}
		b.wait = wait
	}
}

// WithRestorer restores the persisted wallet once the SDK is ready
func WithRestorer(restorer *WalletRestorer) BootstrapOption {
	return func(b *Bootstrap) {
		b.restorer = restorer
	}
}

// WithBootstrapLogger sets the logger
func WithBootstrapLogger(log *zap.Logger) BootstrapOption {
	return func(b *Bootstrap) {
		b.log = logger.OrNop(log)
	}
}

// NewBootstrap creates a Bootstrap constructing SDKs with cfg
func NewBootstrap(initializer ports.SDKInitializer, cfg core.SDKConfig, opts ...BootstrapOption) *Bootstrap {
	b := &Bootstrap{
		initializer: initializer,
		cfg:         cfg,
		log:         zap.NewNop(),
		timeout:     DefaultInitTimeout,
		attempts:    DefaultInitAttempts,
		wait:        DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Initialize returns the SDK instance, constructing it if needed.
// Concurrent callers share one construction and observe the same instance or error.
// ctx only bounds the caller's wait; the construction runs under its own timeout.
func (b *Bootstrap) Initialize(ctx context.Context) (ports.WalletSDK, error) {
	b.mu.Lock()
	if b.sdk != nil {
		sdk := b.sdk
		b.mu.Unlock()
		return sdk, nil
	}
	if !b.initializing {
		b.initializing = true
		b.flight++
	}
	flight := b.flight
	b.mu.Unlock()

	ch := b.group.DoChan(strconv.FormatUint(flight, 10), func() (interface{}, error) {
		return b.construct(flight)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(ports.WalletSDK), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Bootstrap) construct(flight uint64) (ports.WalletSDK, error) {
	b.mu.Lock()
	if b.sdk != nil && b.flight == flight {
		sdk := b.sdk
		b.mu.Unlock()
		return sdk, nil
	}
	b.mu.Unlock()

	var sdk ports.WalletSDK
	err := retry.Retry(func(attempt uint) error {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		instance, err := b.initializer.Init(ctx, b.cfg)
		if err != nil {
			b.log.Warn("wallet sdk construction failed", zap.Uint("attempt", attempt), zap.Error(err))
			return err
		}
		sdk = instance
		return nil
	}, strategy.Limit(b.attempts), strategy.Backoff(backoff.Linear(b.wait)))

	b.mu.Lock()
	if b.flight != flight {
		// Reset while constructing: hand the instance to its waiters only.
		b.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize wallet sdk: %w", err)
		}
		return sdk, nil
	}
	b.initializing = false
	if err != nil {
		b.mu.Unlock()
		return nil, fmt.Errorf("failed to initialize wallet sdk: %w", err)
	}
	b.sdk = sdk
	restore := b.restorer != nil && !b.restored
	b.restored = true
	b.mu.Unlock()

	b.log.Info("wallet sdk ready", zap.String("client_id", b.cfg.ClientID), zap.Int64("chain_id", b.cfg.ChainID))

	if restore {
		b.restorer.Restore(context.Background(), sdk)
	}
	return sdk, nil
}

// SDK returns the instance once ready, core.ErrNotInitialized before that
func (b *Bootstrap) SDK() (ports.WalletSDK, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sdk == nil {
		return nil, core.ErrNotInitialized
	}
	return b.sdk, nil
}

// IsInitialized reports whether the SDK is ready
func (b *Bootstrap) IsInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sdk != nil
}

// IsInitializing reports whether a construction is in flight
func (b *Bootstrap) IsInitializing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initializing
}

// Reset forgets the instance so the next Initialize constructs a new one.
// Instances already handed out stay usable.
func (b *Bootstrap) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sdk = nil
	b.initializing = false
	b.restored = false
	b.flight++
}
