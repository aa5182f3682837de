package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/abduss/mediahost/internal/file"
	"github.com/abduss/mediahost/internal/project"
	"github.com/abduss/mediahost/internal/storage"
	"github.com/abduss/mediahost/internal/storage/storagetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryStalePending(t *testing.T) {
	pool := storagetest.Postgres(t)
	ctx := context.Background()

	p, err := project.NewRepository(pool).Create(ctx, uuid.New(), "sweep", storage.ProviderS3)
	require.NoError(t, err)

	files := file.NewRepository(pool)
	insert := func(age time.Duration) uuid.UUID {
		id := uuid.New()
		_, err := files.Create(ctx, file.File{
			ID:         id,
			ProjectID:  p.ID,
			Name:       "x.bin",
			MimeType:   "application/octet-stream",
			ObjectName: storage.ObjectName(p.ID, id, "x.bin", 0, 0),
			Status:     file.StatusPending,
		})
		require.NoError(t, err)
		_, err = pool.Exec(ctx, `UPDATE files SET created_at = NOW() - make_interval(secs => $2), updated_at = NOW() - make_interval(secs => $2) WHERE id = $1`, id, age.Seconds())
		require.NoError(t, err)
		return id
	}
	old := insert(45 * time.Minute)
	fresh := insert(5 * time.Minute)

	repo := NewRepository(pool)
	stale, err := repo.StalePending(ctx, time.Now().Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old, stale[0].ID)
	assert.Equal(t, storage.ProviderS3, stale[0].Provider)

	claimed, err := repo.ClaimPending(ctx, []uuid.UUID{old, fresh})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{old, fresh}, claimed)

	_, err = files.Complete(ctx, file.File{ID: old, ProjectID: p.ID, ObjectName: stale[0].ObjectName})
	assert.ErrorIs(t, err, file.ErrAlreadyConfirmed)

	claimed, err = repo.ClaimPending(ctx, []uuid.UUID{old})
	require.NoError(t, err)
	assert.Empty(t, claimed)

	n, err := repo.DeleteClaimed(ctx, []uuid.UUID{old, fresh})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = pool.Exec(ctx, `INSERT INTO files (id, project_id, name, mime_type, object_name, status, updated_at)
VALUES ($1, $2, 'f', 'text/plain', $3, 'FAILED', NOW() - INTERVAL '8 days')`, uuid.New(), p.ID, p.ID.String()+"/failed/original")
	require.NoError(t, err)

	n, err = repo.DeleteFailed(ctx, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
