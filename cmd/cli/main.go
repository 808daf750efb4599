package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/dmitrijs2005/rashdrive/internal/backend"
	"github.com/dmitrijs2005/rashdrive/internal/buildinfo"
	"github.com/dmitrijs2005/rashdrive/internal/cli"
	"github.com/dmitrijs2005/rashdrive/internal/cli/sessioncache"
	"github.com/dmitrijs2005/rashdrive/internal/config"
	"github.com/dmitrijs2005/rashdrive/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// diagnostics go to stderr so they do not mix with the REPL
	logger := logging.New(cfg.LogLevel, "text", os.Stderr)

	be := backend.New(ctx, cfg, logger)
	defer be.Close()

	cache, err := sessioncache.Open(ctx, cfg.SessionCachePath)
	if err != nil {
		log.Fatalf("session cache: %v", err)
	}
	defer cache.Close()

	app, err := cli.NewApp(ctx, cli.Deps{
		Log:     logger,
		Backend: be,
		Cache:   cache,
		In:      os.Stdin,
		Out:     os.Stdout,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
