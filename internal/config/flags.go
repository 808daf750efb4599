package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/rashdrive/internal/flagx"
)

// parseFlags overlays command-line flags onto cfg.
//
//	-a string   listen address (":8080")
//	-u string   public base URL, used for OAuth redirects
//	-b string   backend URL
//	-k string   backend anonymous key
//	-j string   backend JWT secret (enables signature checks)
//	-d string   Postgres DSN of the record store
//	-s string   storage endpoint (S3 compatible)
//	-r string   redis address for visitor sessions
//	-l string   log level
//	-f string   session cache file (CLI)
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("rashdrive", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ListenAddr, "a", cfg.ListenAddr, "listen address")
	fs.StringVar(&cfg.PublicURL, "u", cfg.PublicURL, "public base URL")
	fs.StringVar(&cfg.BackendURL, "b", cfg.BackendURL, "backend URL")
	fs.StringVar(&cfg.BackendAnonKey, "k", cfg.BackendAnonKey, "backend anonymous key")
	fs.StringVar(&cfg.BackendJWTSecret, "j", cfg.BackendJWTSecret, "backend JWT secret")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.StorageEndpoint, "s", cfg.StorageEndpoint, "storage endpoint")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "redis address")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.SessionCachePath, "f", cfg.SessionCachePath, "session cache file")

	known := []string{"-a", "-u", "-b", "-k", "-j", "-d", "-s", "-r", "-l", "-f"}
	return fs.Parse(flagx.FilterArgs(args, known))
}
