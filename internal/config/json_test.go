package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseJSON_Overlay(t *testing.T) {
	path := writeTempJSON(t, `{
		"backend_url": "https://abc.supabase.co",
		"backend_anon_key": "anon",
		"database_dsn": "postgres://db",
		"storage_endpoint": "http://minio:9000",
		"storage_access_key": "ak",
		"storage_secret_key": "sk",
		"redis_addr": "redis:6379",
		"visitor_ttl": 3600000000000,
		"rate_limit_rps": 3,
		"secure_cookies": true
	}`)

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseJSON(cfg, path))

	assert.Equal(t, "https://abc.supabase.co", cfg.BackendURL)
	assert.Equal(t, "anon", cfg.BackendAnonKey)
	assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
	assert.Equal(t, "http://minio:9000", cfg.StorageEndpoint)
	assert.Equal(t, "ak", cfg.StorageAccessKey)
	assert.Equal(t, "sk", cfg.StorageSecretKey)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, time.Hour, cfg.VisitorTTL)
	assert.Equal(t, 3, cfg.RateLimitRPS)
	assert.True(t, cfg.SecureCookies)

	// untouched fields keep their defaults
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 20, cfg.RateLimitBurst)
}

func TestParseJSON_NoPath(t *testing.T) {
	cfg := &Config{ListenAddr: ":1"}
	require.NoError(t, parseJSON(cfg, ""))
	assert.Equal(t, ":1", cfg.ListenAddr)
}

func TestParseJSON_Errors(t *testing.T) {
	cfg := &Config{}

	err := parseJSON(cfg, filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	bad := writeTempJSON(t, `{ not json`)
	err = parseJSON(cfg, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode config")
}
