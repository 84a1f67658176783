// Package config loads client and dev API settings from the environment.
//
// A .env file is read first (path from ENV_FILE_PATH, default ".env"); values
// already present in the environment win. Then every key below is read with
// Viper, falling back to the listed default.
//
//   - API_BASE_URL: backend base URL. Default: http://localhost:9000
//   - LOGIN_PATH, REFRESH_PATH: auth endpoints sent without a bearer token
//   - SESSION_EXPIRED_MARKER: error body text that signals an expired session
//   - CLIENT_ID, CHAIN_ID: fixed wallet SDK configuration
//   - WALLET_RPC_URL, WALLET_TYPE: wallet JSON-RPC endpoint and label
//   - REDIS_URL: durable storage and event stream; in-memory when empty
//   - REFRESH_TIMEOUT, REFRESH_ATTEMPTS: bounds of one token refresh
//   - SDK_INIT_TIMEOUT, SDK_INIT_ATTEMPTS: bounds of one SDK construction
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	APIBaseURL           string        `mapstructure:"API_BASE_URL"`
	LoginPath            string        `mapstructure:"LOGIN_PATH"`
	RefreshPath          string        `mapstructure:"REFRESH_PATH"`
	SessionExpiredMarker string        `mapstructure:"SESSION_EXPIRED_MARKER"`
	HTTPTimeout          time.Duration `mapstructure:"HTTP_TIMEOUT"`

	ClientID     string `mapstructure:"CLIENT_ID"`
	ChainID      int64  `mapstructure:"CHAIN_ID"`
	WalletRPCURL string `mapstructure:"WALLET_RPC_URL"`
	WalletType   string `mapstructure:"WALLET_TYPE"`

	RedisURL string `mapstructure:"REDIS_URL"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	RefreshTimeout  time.Duration `mapstructure:"REFRESH_TIMEOUT"`
	RefreshAttempts uint          `mapstructure:"REFRESH_ATTEMPTS"`
	SDKInitTimeout  time.Duration `mapstructure:"SDK_INIT_TIMEOUT"`
	SDKInitAttempts uint          `mapstructure:"SDK_INIT_ATTEMPTS"`

	DevAPIAddr       string        `mapstructure:"DEVAPI_ADDR"`
	DevAPIAccessTTL  time.Duration `mapstructure:"DEVAPI_ACCESS_TTL"`
	DevAPIRefreshTTL time.Duration `mapstructure:"DEVAPI_REFRESH_TTL"`
}

var defaults = map[string]any{
	"API_BASE_URL":           "http://localhost:9000",
	"LOGIN_PATH":             "/api/auth/wallet-login",
	"REFRESH_PATH":           "/api/auth/refresh",
	"SESSION_EXPIRED_MARKER": "session expired",
	"HTTP_TIMEOUT":           30 * time.Second,
	"CLIENT_ID":              "dicer",
	"CHAIN_ID":               int64(8453),
	"WALLET_RPC_URL":         "http://localhost:8545",
	"WALLET_TYPE":            "rpc",
	"REDIS_URL":              "",
	"LOG_LEVEL":              "info",
	"REFRESH_TIMEOUT":        10 * time.Second,
	"REFRESH_ATTEMPTS":       uint(2),
	"SDK_INIT_TIMEOUT":       15 * time.Second,
	"SDK_INIT_ATTEMPTS":      uint(3),
	"DEVAPI_ADDR":            ":9000",
	"DEVAPI_ACCESS_TTL":      5 * time.Minute,
	"DEVAPI_REFRESH_TTL":     5 * 24 * time.Hour,
}

// Load reads the .env file and the environment into a Config
func Load() (*Config, error) {
	loadDotEnv()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would make the client unusable
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if c.RefreshAttempts == 0 {
		return fmt.Errorf("REFRESH_ATTEMPTS must be at least 1")
	}
	if c.SDKInitAttempts == 0 {
		return fmt.Errorf("SDK_INIT_ATTEMPTS must be at least 1")
	}
	return nil
}

func loadDotEnv() {
	envFile := os.Getenv("ENV_FILE_PATH")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err != nil {
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Note: failed to read %s: %v. Using system environment variables.\n", envFile, err)
	}
}
