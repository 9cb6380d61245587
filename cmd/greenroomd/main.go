package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"greenroom/internal/blobcache"
	"greenroom/internal/config"
	"greenroom/internal/connectivity"
	"greenroom/internal/daemon"
	"greenroom/internal/engine"
	"greenroom/internal/logging"
	"greenroom/internal/notifications"
	"greenroom/internal/queue"
	"greenroom/internal/session"
	"greenroom/internal/uploader"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	cache, err := blobcache.New(cfg, logger)
	if err != nil {
		store.Close()
		logger.Error("open recording cache", logging.Error(err))
		return
	}

	gate := session.NewTokenGate(cfg, logger)
	credsPath := session.CredentialsPath(cfg.Paths.DataDir)
	if seeded, err := gate.Seed(credsPath); err != nil {
		logger.Warn("load session credentials", logging.Error(err))
	} else if !seeded {
		logger.Warn("no session credentials found; uploads will require login",
			logging.String("path", credsPath))
	}

	monitor := connectivity.NewProbeMonitor(cfg, logger)
	eng := engine.New(
		cfg,
		store,
		cache,
		gate,
		uploader.NewHTTPUploader(cfg, gate, logger),
		monitor,
		notifications.NewService(cfg),
		logger,
	)
	runner := engine.NewRunner(cfg, eng, monitor, logger)

	d, err := daemon.New(cfg, store, eng, monitor, runner, logger)
	if err != nil {
		store.Close()
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("greenroomd shutting down")
}
