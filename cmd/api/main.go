package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/mediahost/internal/auth"
	"github.com/abduss/mediahost/internal/cleanup"
	"github.com/abduss/mediahost/internal/config"
	"github.com/abduss/mediahost/internal/file"
	"github.com/abduss/mediahost/internal/logger"
	"github.com/abduss/mediahost/internal/media"
	"github.com/abduss/mediahost/internal/project"
	"github.com/abduss/mediahost/internal/quota"
	"github.com/abduss/mediahost/internal/server"
	"github.com/abduss/mediahost/internal/storage"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.Init()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Error("mediahost api stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.AutoMigrate {
		version, err := storage.Migrate(cfg.Postgres.MigrateURL())
		if err != nil {
			return err
		}
		log.Info("database migrated", zap.Uint("version", version))
	}

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	factory := storage.NewFactory(cfg)
	for _, p := range storage.KnownProviders() {
		if !factory.IsProviderAvailable(p) {
			log.Warn("storage provider not configured", zap.String("provider", string(p)))
		}
	}
	if adapter, err := factory.ConfiguredAdapter(storage.ProviderMinIO); err == nil {
		if m, ok := adapter.(*storage.MinIOAdapter); ok {
			if err := m.EnsureBucket(ctx); err != nil {
				log.Warn("ensure minio bucket", zap.Error(err))
			}
		}
	}

	tracker := quota.NewTracker(
		quota.NewRepository(dbPool),
		quota.NewLRUCache(cfg.Quota.CacheSize, cfg.Quota.CacheTTL),
		cfg.Quota.CacheTTL,
		log,
	)

	fileRepo := file.NewRepository(dbPool)
	projectService := project.NewService(project.NewRepository(dbPool), fileRepo, factory, tracker, log)
	fileService := file.NewService(fileRepo, projectService, factory, tracker, media.NewProber(cfg.Media), file.Options{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		PresignExpiry: cfg.Upload.PresignExpiry,
	}, log)

	cleanupService := cleanup.NewService(cleanup.NewRepository(dbPool), factory, tracker, cfg.Cleanup, log)
	cleanupService.Start(ctx)
	defer cleanupService.Stop()

	router := server.NewRouter(server.Dependencies{
		Config:         cfg,
		DB:             dbPool,
		Providers:      factory,
		AuthService:    auth.NewService(auth.NewRepository(dbPool), cfg.Auth),
		ProjectService: projectService,
		FileService:    fileService,
		QuotaTracker:   tracker,
		CleanupService: cleanupService,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("mediahost api listening", zap.String("addr", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("shutting down gracefully")
	return httpServer.Shutdown(shutdownCtx)
}
