package cleanup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abduss/mediahost/internal/config"
	"github.com/abduss/mediahost/internal/file"
	"github.com/abduss/mediahost/internal/storage"
	"github.com/abduss/mediahost/internal/storage/storagetest"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *fakeStore, adapters ...*storagetest.Adapter) (*Service, *fakeInvalidator) {
	inv := &fakeInvalidator{}
	svc := NewService(repo, storagetest.NewFactory(adapters...), inv, config.CleanupConfig{}, nil)
	svc.nowFunc = func() time.Time { return now }
	return svc, inv
}

func staleFile(provider storage.Provider, status file.Status, age time.Duration) StaleFile {
	projectID, fileID := uuid.New(), uuid.New()
	return StaleFile{
		File: file.File{
			ID:         fileID,
			ProjectID:  projectID,
			ObjectName: storage.ObjectName(projectID, fileID, "photo.jpg", 0, 0),
			Status:     status,
			CreatedAt:  now.Add(-age),
			UpdatedAt:  now.Add(-age),
		},
		Provider: provider,
	}
}

func TestCleanupStalePendingRemovesAbandonedUpload(t *testing.T) {
	adapter := storagetest.NewAdapter(storage.ProviderMinIO)
	abandoned := staleFile(storage.ProviderMinIO, file.StatusPending, 45*time.Minute)
	fresh := staleFile(storage.ProviderMinIO, file.StatusPending, 10*time.Minute)
	adapter.Put(abandoned.ObjectName, []byte("partial"))
	adapter.Put(fresh.ObjectName, []byte("in flight"))

	repo := newFakeStore(abandoned, fresh)
	svc, _ := newTestService(repo, adapter)

	result, err := svc.CleanupStalePending(context.Background(), 30*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 1, result.DeletedCount)
	assert.Empty(t, result.Errors)
	assert.False(t, adapter.Has(abandoned.ObjectName))
	assert.True(t, adapter.Has(fresh.ObjectName))
	assert.False(t, repo.has(abandoned.ID))
	assert.True(t, repo.has(fresh.ID))
}

func TestCleanupStalePendingDeletesVariantsAndToleratesMissingObjects(t *testing.T) {
	adapter := storagetest.NewAdapter(storage.ProviderS3)
	sf := staleFile(storage.ProviderS3, file.StatusPending, time.Hour)
	variant := storage.VariantObjectName(sf.ProjectID, sf.ID, "a1b2c3", 100, 50, "webp")
	sf.Variants = []file.Variant{{ObjectName: sf.ObjectName}, {ObjectName: variant}}
	adapter.Put(variant, []byte("v"))

	repo := newFakeStore(sf)
	svc, _ := newTestService(repo, adapter)

	result, err := svc.CleanupStalePending(context.Background(), 30*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 1, result.DeletedCount)
	assert.Empty(t, result.Errors)
	assert.ElementsMatch(t, []string{sf.ObjectName, variant}, adapter.Deleted())
	assert.Empty(t, adapter.Objects())
}

func TestCleanupStalePendingCollectsErrors(t *testing.T) {
	adapter := storagetest.NewAdapter(storage.ProviderMinIO)
	failing := staleFile(storage.ProviderMinIO, file.StatusPending, time.Hour)
	ok := staleFile(storage.ProviderMinIO, file.StatusPending, time.Hour)
	escaped := staleFile(storage.ProviderMinIO, file.StatusPending, time.Hour)
	escaped.ObjectName = uuid.NewString() + "/" + escaped.ID.String() + "/original.jpg"
	unconfigured := staleFile(storage.ProviderS3, file.StatusPending, time.Hour)

	adapter.Put(failing.ObjectName, []byte("x"))
	adapter.Put(ok.ObjectName, []byte("y"))
	adapter.DeleteErrors[failing.ObjectName] = storagetest.ErrInjected

	repo := newFakeStore(failing, ok, escaped, unconfigured)
	svc, _ := newTestService(repo, adapter, storagetest.Unconfigured(storage.ProviderS3))

	result, err := svc.CleanupStalePending(context.Background(), 30*time.Minute)
	require.NoError(t, err)

	assert.Len(t, result.Errors, 3)
	assert.Equal(t, 2, result.DeletedCount, "attempted records are removed even when an object delete failed")
	assert.False(t, repo.has(failing.ID))
	assert.False(t, repo.has(ok.ID))
	assert.True(t, repo.has(escaped.ID))
	assert.True(t, repo.has(unconfigured.ID))
	assert.NotContains(t, adapter.Deleted(), escaped.ObjectName)
}

func TestCleanupStalePendingSkipsRecordConfirmedMidSweep(t *testing.T) {
	adapter := storagetest.NewAdapter(storage.ProviderMinIO)
	racing := staleFile(storage.ProviderMinIO, file.StatusPending, time.Hour)
	abandoned := staleFile(storage.ProviderMinIO, file.StatusPending, time.Hour)
	adapter.Put(racing.ObjectName, []byte("confirmed"))
	adapter.Put(abandoned.ObjectName, []byte("partial"))

	repo := newFakeStore(racing, abandoned)
	repo.beforeClaim = func() {
		require.True(t, repo.complete(racing.ID))
	}
	svc, _ := newTestService(repo, adapter)

	result, err := svc.CleanupStalePending(context.Background(), 30*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 1, result.DeletedCount)
	assert.Empty(t, result.Errors)
	assert.Equal(t, file.StatusCompleted, repo.status(racing.ID))
	assert.True(t, adapter.Has(racing.ObjectName))
	assert.NotContains(t, adapter.Deleted(), racing.ObjectName)
	assert.False(t, adapter.Has(abandoned.ObjectName))
	assert.False(t, repo.has(abandoned.ID))
}

func TestCleanupStalePendingClaimBlocksLateConfirm(t *testing.T) {
	sf := staleFile(storage.ProviderMinIO, file.StatusPending, time.Hour)
	adapter := storagetest.NewAdapter(storage.ProviderMinIO)
	adapter.Put(sf.ObjectName, []byte("partial"))

	repo := newFakeStore(sf)
	svc, _ := newTestService(repo, adapter)

	stale, err := repo.StalePending(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	claimed, err := repo.ClaimPending(context.Background(), []uuid.UUID{sf.ID})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{sf.ID}, claimed)
	assert.False(t, repo.complete(sf.ID), "a claimed record must not be confirmable")

	result, err := svc.CleanupStalePending(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, result.DeletedCount)
	assert.Empty(t, adapter.Deleted())
}

func TestCleanupStalePendingHonorsBatchSize(t *testing.T) {
	adapter := storagetest.NewAdapter(storage.ProviderMinIO)
	var files []StaleFile
	for i := 0; i < 5; i++ {
		files = append(files, staleFile(storage.ProviderMinIO, file.StatusPending, time.Hour))
	}
	repo := newFakeStore(files...)
	svc, _ := newTestService(repo, adapter)
	svc.cfg.BatchSize = 2

	result, err := svc.CleanupStalePending(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, result.DeletedCount)
	assert.Len(t, repo.files, 3)
}

func TestCleanupStaleFailed(t *testing.T) {
	old := staleFile(storage.ProviderMinIO, file.StatusFailed, 8*24*time.Hour)
	recent := staleFile(storage.ProviderMinIO, file.StatusFailed, 24*time.Hour)
	pending := staleFile(storage.ProviderMinIO, file.StatusPending, 30*24*time.Hour)

	repo := newFakeStore(old, recent, pending)
	svc, _ := newTestService(repo, storagetest.NewAdapter(storage.ProviderMinIO))

	result, err := svc.CleanupStaleFailed(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeletedCount)
	assert.False(t, repo.has(old.ID))
	assert.True(t, repo.has(recent.ID))
	assert.True(t, repo.has(pending.ID))
}

func TestRunOnceInvalidatesQuotaOnlyWhenSomethingWasDeleted(t *testing.T) {
	repo := newFakeStore()
	svc, inv := newTestService(repo, storagetest.NewAdapter(storage.ProviderMinIO))

	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(0), inv.calls.Load())

	repo.add(staleFile(storage.ProviderMinIO, file.StatusPending, time.Hour))
	report, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pending.DeletedCount)
	assert.Equal(t, int32(1), inv.calls.Load())
}

func TestStartRunsPeriodicallyUntilStopped(t *testing.T) {
	repo := newFakeStore()
	inv := &fakeInvalidator{}
	svc := NewService(repo, storagetest.NewFactory(storagetest.NewAdapter(storage.ProviderMinIO)), inv, config.CleanupConfig{Interval: 5 * time.Millisecond}, nil)

	svc.Start(context.Background())
	require.Eventually(t, func() bool { return repo.sweeps.Load() >= 2 }, time.Second, 5*time.Millisecond)
	svc.Stop()

	after := repo.sweeps.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, repo.sweeps.Load())
	svc.Stop()
}

func TestStartDisabledWithZeroInterval(t *testing.T) {
	repo := newFakeStore()
	svc, _ := newTestService(repo)
	svc.Start(context.Background())
	svc.Stop()
	assert.Equal(t, int32(0), repo.sweeps.Load())
}

func TestAdminCleanupEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	adapter := storagetest.NewAdapter(storage.ProviderMinIO)
	repo := newFakeStore(staleFile(storage.ProviderMinIO, file.StatusPending, time.Hour))
	svc, _ := newTestService(repo, adapter)

	r := gin.New()
	RegisterAdminRoutes(r.Group("/v1/admin"), svc)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/admin/cleanup", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Pending PendingResult `json:"pending"`
		Failed  FailedResult  `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Pending.DeletedCount)
	assert.Equal(t, 0, body.Failed.DeletedCount)
}

type fakeStore struct {
	mu          sync.Mutex
	files       map[uuid.UUID]StaleFile
	sweeps      atomic.Int32
	beforeClaim func()
}

func newFakeStore(files ...StaleFile) *fakeStore {
	s := &fakeStore{files: make(map[uuid.UUID]StaleFile)}
	for _, f := range files {
		s.add(f)
	}
	return s
}

func (s *fakeStore) add(f StaleFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[f.ID] = f
}

func (s *fakeStore) has(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[id]
	return ok
}

func (s *fakeStore) StalePending(ctx context.Context, cutoff time.Time, limit int) ([]StaleFile, error) {
	s.sweeps.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StaleFile
	for _, f := range s.files {
		if len(out) == limit {
			break
		}
		if f.Status == file.StatusPending && f.CreatedAt.Before(cutoff) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeStore) ClaimPending(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if s.beforeClaim != nil {
		s.beforeClaim()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []uuid.UUID
	for _, id := range ids {
		if f, ok := s.files[id]; ok && f.Status == file.StatusPending {
			f.Status = file.StatusFailed
			f.UpdatedAt = now
			s.files[id] = f
			claimed = append(claimed, id)
		}
	}
	return claimed, nil
}

// complete mimics the guarded confirm commit.
func (s *fakeStore) complete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok || f.Status != file.StatusPending {
		return false
	}
	f.Status = file.StatusCompleted
	s.files[id] = f
	return true
}

func (s *fakeStore) status(id uuid.UUID) file.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[id].Status
}

func (s *fakeStore) DeleteClaimed(ctx context.Context, ids []uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if f, ok := s.files[id]; ok && f.Status == file.StatusFailed {
			delete(s.files, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) DeleteFailed(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, f := range s.files {
		if f.Status == file.StatusFailed && f.UpdatedAt.Before(cutoff) {
			delete(s.files, id)
			n++
		}
	}
	return n, nil
}

type fakeInvalidator struct {
	calls atomic.Int32
}

func (f *fakeInvalidator) InvalidateAllStorageCaches() { f.calls.Add(1) }
