package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository provides access to file records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new file repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const fileColumns = `id, project_id, name, mime_type, is_image, size, object_name, url, status, variants, created_at, updated_at`

func scanFile(row pgx.Row) (File, error) {
	var f File
	var status string
	if err := row.Scan(
		&f.ID,
		&f.ProjectID,
		&f.Name,
		&f.MimeType,
		&f.IsImage,
		&f.Size,
		&f.ObjectName,
		&f.URL,
		&status,
		&f.Variants,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return File{}, err
	}
	f.Status = Status(status)
	if f.Variants == nil {
		f.Variants = []Variant{}
	}
	return f, nil
}

// Create inserts a PENDING record.
func (r *Repository) Create(ctx context.Context, f File) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	if f.Variants == nil {
		f.Variants = []Variant{}
	}

	query := `
INSERT INTO files (id, project_id, name, mime_type, is_image, size, object_name, url, status, variants)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + fileColumns + `;`

	stored, err := scanFile(r.pool.QueryRow(ctx, query,
		f.ID,
		f.ProjectID,
		f.Name,
		f.MimeType,
		f.IsImage,
		f.Size,
		f.ObjectName,
		f.URL,
		string(f.Status),
		f.Variants,
	))
	if err != nil {
		return File{}, fmt.Errorf("create file: %w", err)
	}
	return stored, nil
}

// Get fetches a record of any status within a project.
func (r *Repository) Get(ctx context.Context, projectID, fileID uuid.UUID) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	f, err := scanFile(r.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1 AND project_id = $2;`, fileID, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, ErrFileNotFound
		}
		return File{}, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

// ListCompleted returns the visible files of a project, newest first.
func (r *Repository) ListCompleted(ctx context.Context, projectID uuid.UUID) ([]File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT ` + fileColumns + `
FROM files
WHERE project_id = $1 AND status = 'COMPLETED'
ORDER BY created_at DESC;`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

// Complete promotes a PENDING record. It returns ErrAlreadyConfirmed when the
// record is no longer pending.
func (r *Repository) Complete(ctx context.Context, f File) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE files
SET status = 'COMPLETED',
    name = $3,
    mime_type = $4,
    is_image = $5,
    size = $6,
    url = $7,
    variants = $8,
    updated_at = NOW()
WHERE id = $1 AND project_id = $2 AND status = 'PENDING'
RETURNING ` + fileColumns + `;`

	stored, err := scanFile(r.pool.QueryRow(ctx, query,
		f.ID,
		f.ProjectID,
		f.Name,
		f.MimeType,
		f.IsImage,
		f.Size,
		f.URL,
		f.Variants,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, ErrAlreadyConfirmed
		}
		return File{}, fmt.Errorf("complete file: %w", err)
	}
	return stored, nil
}

// Delete removes a record and returns it.
func (r *Repository) Delete(ctx context.Context, projectID, fileID uuid.UUID) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	f, err := scanFile(r.pool.QueryRow(ctx, `DELETE FROM files WHERE id = $1 AND project_id = $2 RETURNING `+fileColumns+`;`, fileID, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, ErrFileNotFound
		}
		return File{}, fmt.Errorf("delete file: %w", err)
	}
	return f, nil
}

// DeletePending removes a record only while it is still PENDING and reports
// whether it did.
func (r *Repository) DeletePending(ctx context.Context, projectID, fileID uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM files WHERE id = $1 AND project_id = $2 AND status = 'PENDING';`, fileID, projectID)
	if err != nil {
		return false, fmt.Errorf("delete pending file: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListObjectNames returns original and variant keys of every file in a project.
func (r *Repository) ListObjectNames(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT object_name FROM files WHERE project_id = $1
UNION
SELECT v ->> 'objectName'
FROM files f, jsonb_array_elements(f.variants) AS v
WHERE f.project_id = $1 AND v ? 'objectName';`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list object names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan object name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate object names: %w", err)
	}
	return names, nil
}
