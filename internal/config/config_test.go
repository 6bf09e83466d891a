package config

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setValidAuthEnv(t *testing.T) {
	t.Helper()
	secret := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	t.Setenv("AUTH_JWT_SECRET", secret)
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL", "720h")
}

func TestLoad_ValidAuthEnv(t *testing.T) {
	setValidAuthEnv(t)
	t.Setenv("AUTH_REFRESH_STORE", "redis")
	t.Setenv("AUTH_SWEEP_INTERVAL", "30m")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []byte("0123456789abcdef0123456789abcdef"), cfg.Auth.JWTSecret)
	require.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 720*time.Hour, cfg.Auth.RefreshTokenTTL)
	require.Equal(t, RefreshStoreRedis, cfg.Auth.RefreshStore)
	require.Equal(t, 30*time.Minute, cfg.Auth.SweepInterval)
}

func TestLoad_MissingSecret(t *testing.T) {
	setValidAuthEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}

func TestLoad_SecretNotBase64(t *testing.T) {
	setValidAuthEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "not!!base64%%")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "base64")
}

func TestLoad_SecretTooShort(t *testing.T) {
	setValidAuthEnv(t)
	t.Setenv("AUTH_JWT_SECRET", base64.StdEncoding.EncodeToString([]byte("short")))

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least 32 bytes")
}

func TestLoad_MissingTTLs(t *testing.T) {
	for _, key := range []string{"AUTH_ACCESS_TOKEN_TTL", "AUTH_REFRESH_TOKEN_TTL"} {
		t.Run(strings.ToLower(key), func(t *testing.T) {
			setValidAuthEnv(t)
			t.Setenv(key, "")

			_, err := Load()
			require.Error(t, err)
			require.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_NonPositiveTTL(t *testing.T) {
	setValidAuthEnv(t)
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "-5m")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "must be positive")
}

func TestLoad_InvalidRefreshStore(t *testing.T) {
	setValidAuthEnv(t)
	t.Setenv("AUTH_REFRESH_STORE", "dynamo")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "AUTH_REFRESH_STORE")
}

func TestLoad_Defaults(t *testing.T) {
	setValidAuthEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, RefreshStorePostgres, cfg.Auth.RefreshStore)
	require.Equal(t, time.Hour, cfg.Auth.SweepInterval)
	require.Equal(t, 12, cfg.Auth.BcryptCost)
	require.Equal(t, "session-service", cfg.App.Name)
	require.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	require.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}
