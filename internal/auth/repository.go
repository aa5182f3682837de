package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultQueryTimeout = 5 * time.Second

// Repository provides database access for API keys.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateAPIKey persists a hashed key.
func (r *Repository) CreateAPIKey(ctx context.Context, key APIKey) (APIKey, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
INSERT INTO api_keys (id, user_id, prefix, key_hash, is_admin)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at;`

	if err := r.pool.QueryRow(ctx, query, key.ID, key.UserID, key.Prefix, key.KeyHash, key.IsAdmin).Scan(&key.CreatedAt); err != nil {
		return APIKey{}, fmt.Errorf("insert api key: %w", err)
	}
	return key, nil
}

// FindActiveKeysByPrefix returns non-revoked keys sharing a lookup prefix.
func (r *Repository) FindActiveKeysByPrefix(ctx context.Context, prefix string) ([]APIKey, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
SELECT id, user_id, prefix, key_hash, is_admin, created_at
FROM api_keys
WHERE prefix = $1 AND revoked_at IS NULL;`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("query api keys: %w", err)
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Prefix, &k.KeyHash, &k.IsAdmin, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey marks a user's key as revoked.
func (r *Repository) RevokeAPIKey(ctx context.Context, userID, keyID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
UPDATE api_keys
SET revoked_at = NOW()
WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL
RETURNING id;`

	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query, keyID, userID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("revoke api key: %w", err)
	}
	return nil
}
