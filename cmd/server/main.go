package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/rashdrive/internal/backend"
	"github.com/dmitrijs2005/rashdrive/internal/buildinfo"
	"github.com/dmitrijs2005/rashdrive/internal/config"
	"github.com/dmitrijs2005/rashdrive/internal/logging"
	"github.com/dmitrijs2005/rashdrive/internal/web"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	be := backend.New(ctx, cfg, logger)
	defer func() {
		if err := be.Close(); err != nil {
			logger.Warn(ctx, "closing backend", "error", err)
		}
	}()

	var tokens web.TokenStore
	if cfg.RedisAddr != "" {
		rs := web.NewRedisStore(cfg.RedisAddr)
		if err := rs.Ping(ctx); err != nil {
			logger.Warn(ctx, "redis unavailable, visitor tokens kept in memory", "addr", cfg.RedisAddr, "error", err)
			_ = rs.Close()
		} else {
			defer rs.Close()
			tokens = rs
		}
	}

	srv := web.NewServer(web.Deps{
		Config:  cfg,
		Log:     logger,
		Backend: be,
		Tokens:  tokens,
	})

	if err := srv.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}
