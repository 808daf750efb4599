package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/rashdrive/internal/timex"
)

// JsonConfig mirrors Config for JSON decoding. Durations go through
// timex.Duration so both "24h" and nanosecond integers are accepted. Only
// non-zero values override what is already in Config.
type JsonConfig struct {
	ListenAddr       string         `json:"listen_addr"`
	PublicURL        string         `json:"public_url"`
	BackendURL       string         `json:"backend_url"`
	BackendAnonKey   string         `json:"backend_anon_key"`
	BackendJWTSecret string         `json:"backend_jwt_secret"`
	DatabaseDSN      string         `json:"database_dsn"`
	StorageBucket    string         `json:"storage_bucket"`
	StorageRegion    string         `json:"storage_region"`
	StorageEndpoint  string         `json:"storage_endpoint"`
	StorageAccessKey string         `json:"storage_access_key"`
	StorageSecretKey string         `json:"storage_secret_key"`
	RedisAddr        string         `json:"redis_addr"`
	VisitorTTL       timex.Duration `json:"visitor_ttl"`
	SecureCookies    bool           `json:"secure_cookies"`
	RateLimitRPS     int            `json:"rate_limit_rps"`
	RateLimitBurst   int            `json:"rate_limit_burst"`
	LogLevel         string         `json:"log_level"`
	LogFormat        string         `json:"log_format"`
	SessionCachePath string         `json:"session_cache_path"`
}

// parseJSON overlays the file at path onto cfg. An empty path is a no-op.
func parseJSON(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(b, &jc); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	setString(&cfg.ListenAddr, jc.ListenAddr)
	setString(&cfg.PublicURL, jc.PublicURL)
	setString(&cfg.BackendURL, jc.BackendURL)
	setString(&cfg.BackendAnonKey, jc.BackendAnonKey)
	setString(&cfg.BackendJWTSecret, jc.BackendJWTSecret)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.StorageBucket, jc.StorageBucket)
	setString(&cfg.StorageRegion, jc.StorageRegion)
	setString(&cfg.StorageEndpoint, jc.StorageEndpoint)
	setString(&cfg.StorageAccessKey, jc.StorageAccessKey)
	setString(&cfg.StorageSecretKey, jc.StorageSecretKey)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.SessionCachePath, jc.SessionCachePath)

	if jc.VisitorTTL.Duration > 0 {
		cfg.VisitorTTL = jc.VisitorTTL.Duration
	}
	if jc.RateLimitRPS > 0 {
		cfg.RateLimitRPS = jc.RateLimitRPS
	}
	if jc.RateLimitBurst > 0 {
		cfg.RateLimitBurst = jc.RateLimitBurst
	}
	if jc.SecureCookies {
		cfg.SecureCookies = true
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
