package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/dicer/adapters/events"
	"github.com/layer-3/dicer/adapters/store"
	"github.com/layer-3/dicer/adapters/tokenizer"
	"github.com/layer-3/dicer/adapters/wallet"
	"github.com/layer-3/dicer/config"
	"github.com/layer-3/dicer/core"
	"github.com/layer-3/dicer/logger"
	"github.com/layer-3/dicer/ports"
	"github.com/layer-3/dicer/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	dicerhttp "github.com/layer-3/dicer/transport/http"
)

// app holds the wired client
type app struct {
	cfg *config.Config
	log *zap.Logger

	sessions  *service.SessionService
	wallets   *service.WalletStore
	bootstrap *service.Bootstrap
	connector *service.WalletConnector
	game      *dicerhttp.GameAPI

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	zapLog, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a := &app{cfg: cfg, log: zapLog}

	kv, publisher, err := a.storage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	eventPub := events.NewWatermillPublisher(publisher)

	jar, err := cookiejar.New(nil)
	if err != nil {
		a.Close()
		return nil, err
	}
	httpClient := &http.Client{Jar: jar, Timeout: cfg.HTTPTimeout}

	plain, err := dicerhttp.NewClient(cfg.APIBaseURL, httpClient)
	if err != nil {
		a.Close()
		return nil, err
	}

	tokens := service.NewTokenStore(kv, dicerhttp.NewJarCookies(jar, plain.BaseURL()), zapLog)
	a.wallets = service.NewWalletStore(kv, zapLog)
	a.sessions = service.NewSessionService(tokens, a.wallets,
		dicerhttp.NewAuthAPI(plain, cfg.LoginPath, cfg.RefreshPath),
		service.WithRefreshPolicy(cfg.RefreshTimeout, cfg.RefreshAttempts, service.DefaultRetryBackoff),
		service.WithInspector(tokenizer.NewInspector()),
		service.WithPublisher(eventPub),
		service.WithLogger(zapLog),
	)

	transport := dicerhttp.NewAuthTransport(tokens, a.sessions,
		dicerhttp.WithExcludedEndpoints(plain.BaseURL(), cfg.LoginPath, cfg.RefreshPath),
		dicerhttp.WithSessionExpiredMarker(cfg.SessionExpiredMarker),
		dicerhttp.WithTransportLogger(zapLog),
	)
	authed, err := dicerhttp.NewClient(cfg.APIBaseURL, &http.Client{Jar: jar, Timeout: cfg.HTTPTimeout, Transport: transport})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.game = dicerhttp.NewGameAPI(authed)

	a.bootstrap = service.NewBootstrap(
		wallet.NewRPCInitializer(cfg.WalletRPCURL, wallet.WithWalletType(cfg.WalletType)),
		core.SDKConfig{ClientID: cfg.ClientID, ChainID: cfg.ChainID},
		service.WithInitPolicy(cfg.SDKInitTimeout, cfg.SDKInitAttempts, service.DefaultRetryBackoff),
		service.WithRestorer(service.NewWalletRestorer(a.wallets, eventPub, zapLog)),
		service.WithBootstrapLogger(zapLog),
	)
	a.connector = service.NewWalletConnector(a.bootstrap, a.wallets, a.sessions, eventPub, zapLog)

	return a, nil
}

// storage picks Redis for tokens, wallet state and events when REDIS_URL is
// set. Otherwise everything lives in memory for the duration of the command.
func (a *app) storage(ctx context.Context) (ports.KVStore, message.Publisher, error) {
	wmLogger := watermill.NewStdLogger(false, false)

	if a.cfg.RedisURL == "" {
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		a.closers = append(a.closers, pubSub.Close)
		if err := a.traceEvents(ctx, pubSub); err != nil {
			return nil, nil, err
		}
		return store.NewMemoryKV(), pubSub, nil
	}

	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(opts)
	a.closers = append(a.closers, redisClient.Close)

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, wmLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}
	a.closers = append(a.closers, publisher.Close)

	return store.NewRedisKV(redisClient, ""), publisher, nil
}

// traceEvents logs session events published on the in-memory bus
func (a *app) traceEvents(ctx context.Context, pubSub *gochannel.GoChannel) error {
	messages, err := pubSub.Subscribe(ctx, events.SessionTopic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to session events: %w", err)
	}
	go func() {
		for msg := range messages {
			var event core.SessionEvent
			if err := json.Unmarshal(msg.Payload, &event); err == nil {
				a.log.Debug("session event", zap.String("type", string(event.Type)), zap.String("address", event.Address))
			}
			msg.Ack()
		}
	}()
	return nil
}

// Close releases the wallet connection and storage, then flushes the logger
func (a *app) Close() {
	if a.bootstrap != nil {
		if sdk, err := a.bootstrap.SDK(); err == nil {
			if closer, ok := sdk.(interface{ Close() }); ok {
				closer.Close()
			}
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// ensureLogin logs in with address unless a session is already stored
func (a *app) ensureLogin(ctx context.Context, address string) error {
	if a.sessions.IsLoggedIn(ctx) {
		return nil
	}
	if address == "" {
		return fmt.Errorf("not logged in: run login or pass --address")
	}
	return a.sessions.Login(ctx, address)
}
