package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE_PATH", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/api/auth/wallet-login", cfg.LoginPath)
	assert.Equal(t, "/api/auth/refresh", cfg.RefreshPath)
	assert.Equal(t, "session expired", cfg.SessionExpiredMarker)
	assert.Equal(t, int64(8453), cfg.ChainID)
	assert.Equal(t, uint(2), cfg.RefreshAttempts)
	assert.Equal(t, 10*time.Second, cfg.RefreshTimeout)
}

func TestLoadFromEnvAndDotEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CLIENT_ID=from-dotenv\nCHAIN_ID=1\n"), 0o600))
	t.Setenv("ENV_FILE_PATH", envFile)
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("REFRESH_TIMEOUT", "3s")
	t.Cleanup(func() {
		os.Unsetenv("CLIENT_ID")
		os.Unsetenv("CHAIN_ID")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, "from-dotenv", cfg.ClientID)
	assert.Equal(t, int64(1), cfg.ChainID)
	assert.Equal(t, 3*time.Second, cfg.RefreshTimeout)
}

func TestValidate(t *testing.T) {
	cfg := &Config{APIBaseURL: "http://localhost", RefreshAttempts: 0, SDKInitAttempts: 1}
	assert.Error(t, cfg.Validate())
}
