package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"medidor/internal/caching"
	"medidor/internal/models"
	"medidor/internal/repositories"
)

const statsCacheTTL = time.Minute

// StatsService serves the admin dashboard aggregates, cached in Redis
// so repeated dashboard loads do not hammer the counts.
type StatsService interface {
	AdminStats(ctx context.Context) (*models.AdminStats, error)
	Refresh(ctx context.Context) error
}

type statsService struct {
	users        repositories.UserRepository
	projects     repositories.ProjectRepository
	measurements repositories.MeasurementRepository
	cache        caching.CacheService
}

func NewStatsService(users repositories.UserRepository, projects repositories.ProjectRepository, measurements repositories.MeasurementRepository, cache caching.CacheService) StatsService {
	return &statsService{
		users:        users,
		projects:     projects,
		measurements: measurements,
		cache:        cache,
	}
}

func (s *statsService) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	if stats, err := s.cache.GetAdminStats(ctx); err == nil {
		return stats, nil
	} else if !errors.Is(err, caching.ErrCacheMiss) {
		log.Printf("Stats cache read failed, recomputing: %v", err)
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetAdminStats(ctx, stats, statsCacheTTL); err != nil {
		log.Printf("Failed to cache admin stats: %v", err)
	}
	return stats, nil
}

// Refresh recomputes the aggregates and rewrites the cache. The
// background scheduler calls this to keep dashboard reads warm.
func (s *statsService) Refresh(ctx context.Context) error {
	stats, err := s.compute(ctx)
	if err != nil {
		return err
	}
	return s.cache.SetAdminStats(ctx, stats, statsCacheTTL)
}

func (s *statsService) compute(ctx context.Context) (*models.AdminStats, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	projects, err := s.projects.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}
	measurements, err := s.measurements.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count measurements: %w", err)
	}

	return &models.AdminStats{
		Users:        users,
		Projects:     projects,
		Measurements: measurements,
		GeneratedAt:  time.Now(),
	}, nil
}
