// Package config assembles runtime settings for the web server and the CLI.
//
// Sources, later ones winning:
//
//  1. built-in defaults (LoadDefaults)
//  2. an optional JSON file named by -c/-config or $RD_CONFIG
//  3. a .env file in the working directory, then the process environment
//  4. command-line flags
package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/flagx"
)

// Config holds every tunable of the application.
//
// BackendURL and BackendAnonKey identify the managed backend. When either is
// empty the backend is built as a not-configured stub.
type Config struct {
	ListenAddr string `env:"RD_LISTEN_ADDR"`
	PublicURL  string `env:"RD_PUBLIC_URL"`

	BackendURL       string `env:"SUPABASE_URL"`
	BackendAnonKey   string `env:"SUPABASE_ANON_KEY"`
	BackendJWTSecret string `env:"SUPABASE_JWT_SECRET"`
	DatabaseDSN      string `env:"DATABASE_URL"`

	StorageBucket    string `env:"RD_STORAGE_BUCKET"`
	StorageRegion    string `env:"RD_STORAGE_REGION"`
	StorageEndpoint  string `env:"RD_STORAGE_ENDPOINT"`
	StorageAccessKey string `env:"RD_STORAGE_ACCESS_KEY"`
	StorageSecretKey string `env:"RD_STORAGE_SECRET_KEY"`

	RedisAddr     string        `env:"RD_REDIS_ADDR"`
	VisitorTTL    time.Duration `env:"RD_VISITOR_TTL"`
	SecureCookies bool          `env:"RD_SECURE_COOKIES"`

	RateLimitRPS   int `env:"RD_RATE_LIMIT_RPS"`
	RateLimitBurst int `env:"RD_RATE_LIMIT_BURST"`

	LogLevel  string `env:"RD_LOG_LEVEL"`
	LogFormat string `env:"RD_LOG_FORMAT"`

	SessionCachePath string `env:"RD_SESSION_CACHE"`
}

// LoadDefaults fills c with development defaults. Backend credentials are
// deliberately left empty.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.PublicURL = "http://localhost:8080"
	c.StorageBucket = "complaint-media"
	c.StorageRegion = "us-east-1"
	c.VisitorTTL = 24 * time.Hour
	c.RateLimitRPS = 10
	c.RateLimitBurst = 20
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.SessionCachePath = "rashdrive.db"
}

// BackendConfigured reports whether both backend identifiers are present.
func (c *Config) BackendConfigured() bool {
	return c.BackendURL != "" && c.BackendAnonKey != ""
}

// Load builds a Config from defaults, JSON, environment and the given
// command-line arguments (without the program name).
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, flagx.ConfigPath(args)); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
