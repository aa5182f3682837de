// Command cleanup runs both orphan sweeps once and prints the summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/abduss/mediahost/internal/cleanup"
	"github.com/abduss/mediahost/internal/config"
	"github.com/abduss/mediahost/internal/logger"
	"github.com/abduss/mediahost/internal/quota"
	"github.com/abduss/mediahost/internal/storage"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	pendingAge := flag.Duration("pending-age", 0, "override CLEANUP_PENDING_MAX_AGE")
	failedAge := flag.Duration("failed-age", 0, "override CLEANUP_FAILED_MAX_AGE")
	flag.Parse()

	_ = godotenv.Load()

	log, err := logger.Init()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}
	if *pendingAge > 0 {
		cfg.Cleanup.PendingMaxAge = *pendingAge
	}
	if *failedAge > 0 {
		cfg.Cleanup.FailedMaxAge = *failedAge
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	// Caches are process-local, so the API instance refreshes on its own TTL.
	tracker := quota.NewTracker(quota.NewRepository(dbPool), quota.NewLRUCache(cfg.Quota.CacheSize, cfg.Quota.CacheTTL), cfg.Quota.CacheTTL, log)
	service := cleanup.NewService(cleanup.NewRepository(dbPool), storage.NewFactory(cfg), tracker, cfg.Cleanup, log)

	report, err := service.RunOnce(ctx)
	if err != nil {
		log.Error("cleanup failed", zap.Error(err))
		stop()
		dbPool.Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Error("write report", zap.Error(err))
	}
}
