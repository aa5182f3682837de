package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/abduss/mediahost/internal/file"
	"github.com/abduss/mediahost/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 30 * time.Second

// Repository selects and removes abandoned file records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a cleanup repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StalePending returns at most limit PENDING records created before cutoff, oldest first.
func (r *Repository) StalePending(ctx context.Context, cutoff time.Time, limit int) ([]StaleFile, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT f.id, f.project_id, f.object_name, f.variants, f.created_at, p.provider
FROM files f
JOIN projects p ON p.id = f.project_id
WHERE f.status = 'PENDING' AND f.created_at < $1
ORDER BY f.created_at
LIMIT $2;`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale pending: %w", err)
	}
	defer rows.Close()

	var out []StaleFile
	for rows.Next() {
		var (
			sf       StaleFile
			provider string
		)
		if err := rows.Scan(&sf.ID, &sf.ProjectID, &sf.ObjectName, &sf.Variants, &sf.CreatedAt, &provider); err != nil {
			return nil, fmt.Errorf("scan stale pending: %w", err)
		}
		sf.Status = file.StatusPending
		sf.Provider = storage.Provider(provider)
		out = append(out, sf)
	}
	return out, rows.Err()
}

// ClaimPending moves the given records from PENDING to FAILED and returns the
// ids it moved. A confirm that commits first keeps its record out of the claim,
// and a claimed record can no longer be confirmed.
func (r *Repository) ClaimPending(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
UPDATE files SET status = 'FAILED', updated_at = NOW()
WHERE id = ANY($1) AND status = 'PENDING'
RETURNING id;`, ids)
	if err != nil {
		return nil, fmt.Errorf("claim pending records: %w", err)
	}
	defer rows.Close()

	var claimed []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan claimed id: %w", err)
		}
		claimed = append(claimed, id)
	}
	return claimed, rows.Err()
}

// DeleteClaimed removes records previously moved to FAILED by ClaimPending.
func (r *Repository) DeleteClaimed(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM files WHERE id = ANY($1) AND status = 'FAILED';`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete claimed records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteFailed removes FAILED records last touched before cutoff.
func (r *Repository) DeleteFailed(ctx context.Context, cutoff time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM files WHERE status = 'FAILED' AND updated_at < $1;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete failed records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
