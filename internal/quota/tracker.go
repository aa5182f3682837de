package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/abduss/mediahost/internal/storage"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// DefaultMaxAge bounds how stale a cached usage snapshot may be.
const DefaultMaxAge = 5 * time.Minute

type usageStore interface {
	AggregateUsage(ctx context.Context, provider storage.Provider) (int64, int64, error)
	GetQuota(ctx context.Context, provider storage.Provider) (int64, bool, error)
	SetQuota(ctx context.Context, provider storage.Provider, quota *int64) error
}

// Tracker computes per-provider storage usage and gates uploads against quotas.
type Tracker struct {
	store   usageStore
	cache   UsageCache
	maxAge  time.Duration
	nowFunc func() time.Time
	logger  *zap.Logger
}

// NewTracker wires a Tracker. maxAge <= 0 selects DefaultMaxAge.
func NewTracker(store usageStore, cache UsageCache, maxAge time.Duration, logger *zap.Logger) *Tracker {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		store:   store,
		cache:   cache,
		maxAge:  maxAge,
		nowFunc: time.Now,
		logger:  logger.With(zap.String("component", "quota")),
	}
}

// CalculateStorageUsage runs the aggregation without consulting the cache.
func (t *Tracker) CalculateStorageUsage(ctx context.Context, provider storage.Provider) (Usage, error) {
	total, count, err := t.store.AggregateUsage(ctx, provider)
	if err != nil {
		return Usage{}, err
	}
	return Usage{TotalBytes: total, FileCount: count, LastCalculated: t.nowFunc()}, nil
}

// GetStorageUsage returns a cached snapshot younger than maxAge, recomputing it otherwise.
func (t *Tracker) GetStorageUsage(ctx context.Context, provider storage.Provider, maxAge time.Duration) (Usage, error) {
	if maxAge <= 0 {
		maxAge = t.maxAge
	}

	if cached, ok := t.cache.Get(provider); ok && t.nowFunc().Sub(cached.LastCalculated) < maxAge {
		return cached, nil
	}

	usage, err := t.CalculateStorageUsage(ctx, provider)
	if err != nil {
		return Usage{}, err
	}
	t.cache.Set(provider, usage)
	return usage, nil
}

// InvalidateStorageCache drops the snapshot of provider.
func (t *Tracker) InvalidateStorageCache(provider storage.Provider) {
	t.cache.Invalidate(provider)
}

// InvalidateAllStorageCaches drops every snapshot.
func (t *Tracker) InvalidateAllStorageCaches() {
	t.cache.InvalidateAll()
}

// CheckStorageQuota reports whether incoming bytes fit under the provider quota.
// No quota, or a zero quota, means unlimited.
func (t *Tracker) CheckStorageQuota(ctx context.Context, provider storage.Provider, incoming int64) (Check, error) {
	limit, ok, err := t.store.GetQuota(ctx, provider)
	if err != nil {
		return Check{}, err
	}
	if !ok || limit <= 0 {
		return Check{Allowed: true, Unlimited: true}, nil
	}

	usage, err := t.GetStorageUsage(ctx, provider, t.maxAge)
	if err != nil {
		return Check{}, err
	}

	remaining := max(limit-usage.TotalBytes, 0)
	check := Check{
		Allowed:      usage.TotalBytes+incoming <= limit,
		Remaining:    remaining,
		CurrentUsage: usage.TotalBytes,
		Quota:        limit,
	}
	if !check.Allowed {
		check.Message = fmt.Sprintf("storage quota exceeded: %s remaining of %s, upload needs %s",
			humanize.IBytes(uint64(remaining)), humanize.IBytes(uint64(limit)), humanize.IBytes(uint64(max(incoming, 0))))
		t.logger.Info("quota check denied",
			zap.String("provider", string(provider)),
			zap.Int64("usage", usage.TotalBytes),
			zap.Int64("quota", limit),
			zap.Int64("incoming", incoming))
	}
	return check, nil
}

// ProviderUsage returns usage together with the configured limit.
func (t *Tracker) ProviderUsage(ctx context.Context, provider storage.Provider) (ProviderUsage, error) {
	usage, err := t.GetStorageUsage(ctx, provider, t.maxAge)
	if err != nil {
		return ProviderUsage{}, err
	}
	out := ProviderUsage{Provider: provider, Usage: usage}

	limit, ok, err := t.store.GetQuota(ctx, provider)
	if err != nil {
		return ProviderUsage{}, err
	}
	if ok && limit > 0 {
		remaining := max(limit-usage.TotalBytes, 0)
		out.Quota = &limit
		out.Remaining = &remaining
	}
	return out, nil
}

// SetQuota stores a new limit. A nil or zero limit removes it.
func (t *Tracker) SetQuota(ctx context.Context, provider storage.Provider, limit *int64) error {
	if limit != nil && *limit < 0 {
		return ErrInvalidQuota
	}
	if err := t.store.SetQuota(ctx, provider, limit); err != nil {
		return err
	}
	t.InvalidateStorageCache(provider)
	return nil
}
