package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/mediahost/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repositoryTimeout = 5 * time.Second

// Repository aggregates usage and reads quota limits from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a quota repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AggregateUsage sums the original sizes of completed files stored with provider.
func (r *Repository) AggregateUsage(ctx context.Context, provider storage.Provider) (int64, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT COALESCE(SUM(f.size), 0)::BIGINT AS total_bytes,
       COUNT(*) AS file_count
FROM files f
JOIN projects p ON p.id = f.project_id
WHERE p.provider = $1
  AND f.status = 'COMPLETED';`

	var total, count int64
	if err := r.pool.QueryRow(ctx, query, string(provider)).Scan(&total, &count); err != nil {
		return 0, 0, fmt.Errorf("aggregate usage: %w", err)
	}
	return total, count, nil
}

// GetQuota returns the configured byte ceiling; ok is false when none is set.
func (r *Repository) GetQuota(ctx context.Context, provider storage.Provider) (int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	var quota *int64
	err := r.pool.QueryRow(ctx, `SELECT quota_bytes FROM storage_quotas WHERE provider = $1;`, string(provider)).Scan(&quota)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get quota: %w", err)
	}
	if quota == nil {
		return 0, false, nil
	}
	return *quota, true, nil
}

// SetQuota upserts the ceiling for provider. A nil quota removes the limit.
func (r *Repository) SetQuota(ctx context.Context, provider storage.Provider, quota *int64) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
INSERT INTO storage_quotas (provider, quota_bytes, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (provider) DO UPDATE
SET quota_bytes = EXCLUDED.quota_bytes,
    updated_at = NOW();`

	if _, err := r.pool.Exec(ctx, query, string(provider), quota); err != nil {
		return fmt.Errorf("set quota: %w", err)
	}
	return nil
}
