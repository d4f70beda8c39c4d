package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"medidor/internal/models"

	"github.com/redis/go-redis/v9"
)

const adminStatsKey = "admin_stats"

// ErrCacheMiss is returned when a key is absent from the cache.
var ErrCacheMiss = fmt.Errorf("cache miss")

type CacheService interface {
	GetAdminStats(ctx context.Context) (*models.AdminStats, error)
	SetAdminStats(ctx context.Context, stats *models.AdminStats, ttl time.Duration) error

	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	// Accept redis://host:port as well as bare host:port
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "rediss://"), "redis://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func (s *redisCacheService) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	data, err := s.client.Get(ctx, adminStatsKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	stats := &models.AdminStats{}
	if err := json.Unmarshal(data, stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached stats: %w", err)
	}
	return stats, nil
}

func (s *redisCacheService) SetAdminStats(ctx context.Context, stats *models.AdminStats, ttl time.Duration) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	return s.client.Set(ctx, adminStatsKey, data, ttl).Err()
}

func (s *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return value, nil
}

func (s *redisCacheService) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
