package cleanup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abduss/mediahost/internal/config"
	"github.com/abduss/mediahost/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPendingMaxAge = 30 * time.Minute
	defaultFailedMaxAge  = 7 * 24 * time.Hour
	defaultBatchSize     = 500
)

type store interface {
	StalePending(ctx context.Context, cutoff time.Time, limit int) ([]StaleFile, error)
	ClaimPending(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	DeleteClaimed(ctx context.Context, ids []uuid.UUID) (int, error)
	DeleteFailed(ctx context.Context, cutoff time.Time) (int, error)
}

type adapterSource interface {
	ConfiguredAdapter(provider storage.Provider) (storage.Adapter, error)
}

type cacheInvalidator interface {
	InvalidateAllStorageCaches()
}

// Service reclaims objects and records left behind by abandoned uploads.
type Service struct {
	repo     store
	adapters adapterSource
	quota    cacheInvalidator
	cfg      config.CleanupConfig
	logger   *zap.Logger
	nowFunc  func() time.Time

	runMu  sync.Mutex
	stopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService builds a cleanup service. Zero config values fall back to defaults.
func NewService(repo store, adapters adapterSource, quota cacheInvalidator, cfg config.CleanupConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PendingMaxAge <= 0 {
		cfg.PendingMaxAge = defaultPendingMaxAge
	}
	if cfg.FailedMaxAge <= 0 {
		cfg.FailedMaxAge = defaultFailedMaxAge
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Service{
		repo:     repo,
		adapters: adapters,
		quota:    quota,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "cleanup")),
		nowFunc:  time.Now,
	}
}

type deleteTarget struct {
	fileID  uuid.UUID
	name    string
	adapter storage.Adapter
}

// CleanupStalePending reclaims PENDING records older than olderThan. Records
// are claimed before any object is touched so a confirm racing the sweep either
// wins and keeps its objects or loses and can no longer commit. Object failures
// are collected in the result and never abort the sweep.
func (s *Service) CleanupStalePending(ctx context.Context, olderThan time.Duration) (PendingResult, error) {
	result := PendingResult{Errors: []string{}}

	stale, err := s.repo.StalePending(ctx, s.nowFunc().Add(-olderThan), s.cfg.BatchSize)
	if err != nil {
		return result, err
	}
	if len(stale) == 0 {
		return result, nil
	}

	var (
		candidates []deleteTarget
		ids        []uuid.UUID
	)
	for _, sf := range stale {
		adapter, err := s.adapters.ConfiguredAdapter(sf.Provider)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("file %s: %v", sf.ID, err))
			continue
		}

		names := sf.ObjectNames()
		var scopeErr error
		for _, name := range names {
			if err := storage.EnsureProjectScope(sf.ProjectID, name); err != nil {
				scopeErr = err
				break
			}
		}
		if scopeErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("file %s: %v", sf.ID, scopeErr))
			continue
		}

		for _, name := range names {
			candidates = append(candidates, deleteTarget{fileID: sf.ID, name: name, adapter: adapter})
		}
		ids = append(ids, sf.ID)
	}

	claimed, err := s.repo.ClaimPending(ctx, ids)
	if err != nil {
		return result, err
	}
	if skipped := len(ids) - len(claimed); skipped > 0 {
		s.logger.Info("stale records confirmed during sweep", zap.Int("skipped", skipped))
	}
	owned := make(map[uuid.UUID]struct{}, len(claimed))
	for _, id := range claimed {
		owned[id] = struct{}{}
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, target := range candidates {
		if _, ok := owned[target.fileID]; !ok {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := target.adapter.DeleteObject(ctx, target.name)
			if err == nil || errors.Is(err, storage.ErrObjectNotFound) {
				return
			}
			objectDeleteErrors.Inc()
			s.logger.Warn("delete stale object", zap.String("object", target.name), zap.Error(err))
			mu.Lock()
			result.Errors = append(result.Errors, fmt.Sprintf("file %s: delete %s: %v", target.fileID, target.name, err))
			mu.Unlock()
		}()
	}
	wg.Wait()

	deleted, err := s.repo.DeleteClaimed(ctx, claimed)
	if err != nil {
		return result, err
	}
	result.DeletedCount = deleted
	deletedRecords.WithLabelValues("pending").Add(float64(deleted))
	return result, nil
}

// CleanupStaleFailed deletes FAILED records older than olderThan.
func (s *Service) CleanupStaleFailed(ctx context.Context, olderThan time.Duration) (FailedResult, error) {
	deleted, err := s.repo.DeleteFailed(ctx, s.nowFunc().Add(-olderThan))
	if err != nil {
		return FailedResult{}, err
	}
	deletedRecords.WithLabelValues("failed").Add(float64(deleted))
	return FailedResult{DeletedCount: deleted}, nil
}

// RunOnce runs both sweeps with the configured ages. Concurrent calls are serialized.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	var report Report

	pending, err := s.CleanupStalePending(ctx, s.cfg.PendingMaxAge)
	if err != nil {
		return report, fmt.Errorf("pending sweep: %w", err)
	}
	report.Pending = pending

	failed, err := s.CleanupStaleFailed(ctx, s.cfg.FailedMaxAge)
	if err != nil {
		return report, fmt.Errorf("failed sweep: %w", err)
	}
	report.Failed = failed

	if pending.DeletedCount > 0 || failed.DeletedCount > 0 {
		s.quota.InvalidateAllStorageCaches()
	}

	report.Duration = time.Since(start)
	runsTotal.Inc()
	runDuration.Observe(report.Duration.Seconds())

	s.logger.Info("cleanup finished",
		zap.Int("pending_deleted", pending.DeletedCount),
		zap.Int("pending_errors", len(pending.Errors)),
		zap.Int("failed_deleted", failed.DeletedCount),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// Start runs RunOnce every configured interval until Stop is called or ctx
// ends. A non-positive interval disables the runner.
func (s *Service) Start(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		s.logger.Info("periodic cleanup disabled")
		return
	}

	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
					s.logger.Error("cleanup run", zap.Error(err))
				}
			}
		}
	}(s.done)
}

// Stop halts the periodic runner and waits for an in-flight run to finish.
func (s *Service) Stop() {
	s.stopMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.stopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
