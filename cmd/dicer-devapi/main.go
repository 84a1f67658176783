package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/dicer/adapters/events"
	"github.com/layer-3/dicer/adapters/store"
	"github.com/layer-3/dicer/adapters/tokenizer"
	"github.com/layer-3/dicer/config"
	"github.com/layer-3/dicer/devapi"
	"github.com/layer-3/dicer/logger"
	"github.com/layer-3/dicer/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLog.Sync()

	// Tokens do not survive a restart; clients simply log in again.
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		zapLog.Fatal("Failed to generate signing key", zap.Error(err))
	}

	var (
		revocations ports.Store
		publisher   message.Publisher
	)
	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zapLog.Fatal("Failed to parse Redis URL", zap.Error(err))
		}
		redisClient := redis.NewClient(opts)

		publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, wmLogger)
		if err != nil {
			zapLog.Fatal("Failed to create Redis publisher", zap.Error(err))
		}
		revocations = store.NewRedisStore(redisClient)
	} else {
		zapLog.Warn("REDIS_URL is empty, using in-memory revocation store and event bus")
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		revocations = store.NewMemoryStore()
	}
	defer publisher.Close()

	authService := devapi.NewAuthService(
		tokenizer.NewJWTTokenizer(privateKey),
		revocations,
		events.NewWatermillPublisher(publisher),
		devapi.WithTTLs(cfg.DevAPIAccessTTL, cfg.DevAPIRefreshTTL),
		devapi.WithAuthLogger(zapLog),
	)

	gin.SetMode(gin.ReleaseMode)
	router := devapi.NewRouter(authService, devapi.NewGame(), zapLog)

	zapLog.Info("dev api listening", zap.String("addr", cfg.DevAPIAddr), zap.Duration("access_ttl", cfg.DevAPIAccessTTL))
	if err := router.Run(cfg.DevAPIAddr); err != nil {
		zapLog.Fatal("Failed to start server", zap.Error(err))
	}
}
