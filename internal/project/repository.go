package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/mediahost/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repositoryTimeout = 5 * time.Second

// Repository allows access to project persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a project repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const projectColumns = `id, owner_id, name, provider, created_at, updated_at`

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	var provider string
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &provider, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Project{}, err
	}
	p.Provider = storage.Provider(provider)
	return p, nil
}

// Create inserts a new project for the owner.
func (r *Repository) Create(ctx context.Context, ownerID uuid.UUID, name string, provider storage.Provider) (Project, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
INSERT INTO projects (id, owner_id, name, provider)
VALUES ($1, $2, $3, $4)
RETURNING ` + projectColumns + `;`

	p, err := scanProject(r.pool.QueryRow(ctx, query, uuid.New(), ownerID, name, string(provider)))
	if err != nil {
		if isUniqueViolation(err) {
			return Project{}, ErrProjectNameExists
		}
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// List returns all projects owned by the user.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID) ([]Project, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects WHERE owner_id = $1 ORDER BY created_at DESC;`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// Get fetches a single project ensuring ownership.
func (r *Repository) Get(ctx context.Context, ownerID, projectID uuid.UUID) (Project, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	p, err := scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1 AND owner_id = $2;`, projectID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrProjectNotFound
		}
		return Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// Delete removes a project owned by the user. Files cascade.
func (r *Repository) Delete(ctx context.Context, ownerID, projectID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	commandTag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND owner_id = $2;`, projectID, ownerID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// Usage sums completed originals and their derived variants. The first variant
// entry mirrors the original and is not counted twice.
func (r *Repository) Usage(ctx context.Context, projectID uuid.UUID) (Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()

	query := `
SELECT COUNT(*) AS file_count,
       COALESCE(SUM(f.size), 0)::BIGINT AS original_bytes,
       COALESCE(SUM(v.variant_bytes), 0)::BIGINT AS variant_bytes
FROM files f
LEFT JOIN LATERAL (
    SELECT SUM((e.elem ->> 'size')::BIGINT) AS variant_bytes
    FROM jsonb_array_elements(f.variants) WITH ORDINALITY AS e(elem, idx)
    WHERE e.idx > 1
) v ON TRUE
WHERE f.project_id = $1
  AND f.status = 'COMPLETED';`

	var usage Usage
	if err := r.pool.QueryRow(ctx, query, projectID).Scan(&usage.FileCount, &usage.OriginalBytes, &usage.VariantBytes); err != nil {
		return Usage{}, fmt.Errorf("project usage: %w", err)
	}
	usage.TotalBytes = usage.OriginalBytes + usage.VariantBytes
	return usage, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
