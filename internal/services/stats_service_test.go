package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"medidor/internal/caching"
	"medidor/internal/models"
	"medidor/internal/repositories"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
)

type stubCache struct {
	stats    *models.AdminStats
	getErr   error
	setCalls int
}

func (c *stubCache) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	if c.stats == nil {
		return nil, caching.ErrCacheMiss
	}
	return c.stats, nil
}

func (c *stubCache) SetAdminStats(ctx context.Context, stats *models.AdminStats, ttl time.Duration) error {
	c.stats = stats
	c.setCalls++
	return nil
}

func (c *stubCache) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}

func (c *stubCache) GetString(ctx context.Context, key string) (string, error) {
	return "", caching.ErrCacheMiss
}

func (c *stubCache) Delete(ctx context.Context, key string) error {
	return nil
}

func newStatsServiceForTest(t *testing.T, cache caching.CacheService) (StatsService, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)

	svc := NewStatsService(
		repositories.NewUserRepo(mock),
		repositories.NewProjectRepo(mock),
		repositories.NewMeasurementRepo(mock),
		cache,
	)
	return svc, mock
}

func expectCounts(mock pgxmock.PgxPoolIface, users, projects, measurements int) {
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(users))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM projects`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(projects))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM measurements`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(measurements))
}

func TestAdminStats_CacheMissComputesAndCaches(t *testing.T) {
	// A wrapped miss must still read as a miss, not as a cache failure.
	cache := &stubCache{getErr: fmt.Errorf("read stats cache: %w", caching.ErrCacheMiss)}
	svc, mock := newStatsServiceForTest(t, cache)
	defer mock.Close()

	expectCounts(mock, 12, 34, 56)

	stats, err := svc.AdminStats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 12, stats.Users)
	assert.Equal(t, 34, stats.Projects)
	assert.Equal(t, 56, stats.Measurements)
	assert.Equal(t, 1, cache.setCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminStats_CacheHitSkipsDatabase(t *testing.T) {
	cached := &models.AdminStats{Users: 5, Projects: 7, Measurements: 9, GeneratedAt: time.Now()}
	svc, mock := newStatsServiceForTest(t, &stubCache{stats: cached})
	defer mock.Close()

	stats, err := svc.AdminStats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, cached, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_RewritesCache(t *testing.T) {
	cache := &stubCache{}
	svc, mock := newStatsServiceForTest(t, cache)
	defer mock.Close()

	expectCounts(mock, 1, 2, 3)

	assert.NoError(t, svc.Refresh(context.Background()))
	assert.Equal(t, 1, cache.setCalls)
	assert.Equal(t, 2, cache.stats.Projects)
}
