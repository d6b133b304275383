package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"digipay/internal/models"

	"github.com/redis/go-redis/v9"
)

type CacheService struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewCacheService(client redis.UniversalClient, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// Commission tier caching
func (s *CacheService) CacheTier(ctx context.Context, tier *models.CommissionTier) error {
	if tier == nil {
		return errors.New("cannot cache nil tier")
	}
	return s.Set(ctx, s.GenerateKey("tier", "name", tier.Name), tier)
}

// GetTier returns (nil, nil) on a miss.
func (s *CacheService) GetTier(ctx context.Context, name string) (*models.CommissionTier, error) {
	var tier models.CommissionTier
	found, err := s.Get(ctx, s.GenerateKey("tier", "name", name), &tier)
	if err != nil || !found {
		return nil, err
	}
	return &tier, nil
}

func (s *CacheService) InvalidateTier(ctx context.Context, name string) error {
	return s.Delete(ctx, s.GenerateKey("tier", "name", name))
}
