package background

import (
	"context"
	"io"
	"testing"
	"time"

	"medidor/internal/models"
	"medidor/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubStats struct {
	refreshes int
}

func (s *stubStats) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	return &models.AdminStats{}, nil
}

func (s *stubStats) Refresh(ctx context.Context) error {
	s.refreshes++
	return nil
}

type stubImageRepo struct {
	paths map[string]struct{}
}

func (r *stubImageRepo) Create(ctx context.Context, image *models.Image) error { return nil }
func (r *stubImageRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	return nil, nil
}
func (r *stubImageRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Image, error) {
	return nil, nil
}
func (r *stubImageRepo) ListAll(ctx context.Context, limit, offset int) ([]*models.Image, error) {
	return nil, nil
}
func (r *stubImageRepo) ListStoragePaths(ctx context.Context) (map[string]struct{}, error) {
	return r.paths, nil
}
func (r *stubImageRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) { return 0, nil }

type stubStorage struct {
	objects []services.StoredObject
	deleted []string
}

func (s *stubStorage) Upload(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (string, error) {
	return "", nil
}
func (s *stubStorage) Delete(ctx context.Context, bucketName, objectName string) error {
	s.deleted = append(s.deleted, objectName)
	return nil
}
func (s *stubStorage) PublicURL(bucketName, objectName string) string { return "" }
func (s *stubStorage) GetPresignedURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error) {
	return "", nil
}
func (s *stubStorage) ListObjects(ctx context.Context, bucketName, prefix string) ([]services.StoredObject, error) {
	return s.objects, nil
}
func (s *stubStorage) EnsureBucketExists(ctx context.Context, bucketName string) error { return nil }

func newSchedulerForTest(t *testing.T, stats *stubStats, repo *stubImageRepo, storage *stubStorage) *JobScheduler {
	js, err := NewJobScheduler(stats, repo, storage, "images")
	assert.NoError(t, err)
	return js
}

func TestStartAndStop(t *testing.T) {
	js := newSchedulerForTest(t, &stubStats{}, &stubImageRepo{}, &stubStorage{})

	js.Start()
	assert.NoError(t, js.Stop())
}

func TestRefreshStats_DelegatesToService(t *testing.T) {
	stats := &stubStats{}
	js := newSchedulerForTest(t, stats, &stubImageRepo{}, &stubStorage{})
	defer js.Stop()

	js.refreshStats(context.Background())
	assert.Equal(t, 1, stats.refreshes)
}

func TestSweep_RemovesOnlyOldUnknownObjects(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-time.Hour)

	repo := &stubImageRepo{paths: map[string]struct{}{
		"projects/p1/known.jpg": {},
	}}
	storage := &stubStorage{objects: []services.StoredObject{
		{Key: "projects/p1/known.jpg", LastModified: old},
		{Key: "projects/p1/orphan.jpg", LastModified: old},
		{Key: "projects/p2/in-flight.jpg", LastModified: recent},
		{Key: "avatars/u1.jpg", LastModified: old},
	}}
	js := newSchedulerForTest(t, &stubStats{}, repo, storage)
	defer js.Stop()

	js.sweepOrphanedObjects(context.Background())
	assert.Equal(t, []string{"projects/p1/orphan.jpg"}, storage.deleted)
}
