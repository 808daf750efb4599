package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// dotenvFile is loaded, when present, before the environment is read.
// Variables already set in the process environment are not overridden.
var dotenvFile = ".env"

// parseEnv overlays environment variables onto cfg. Unset variables leave the
// current value untouched.
func parseEnv(cfg *Config) error {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotenvFile, err)
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
