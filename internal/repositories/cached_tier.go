package repositories

import (
	"context"
	"log"

	"digipay/internal/models"
	"digipay/internal/repositories/cache"
)

// cachedTierRepository reads tiers through redis. Cache failures degrade to
// the database, never to an error.
type cachedTierRepository struct {
	next  CommissionTierRepository
	cache *cache.CacheService
}

func NewCachedTierRepository(next CommissionTierRepository, cacheService *cache.CacheService) CommissionTierRepository {
	if cacheService == nil {
		return next
	}
	return &cachedTierRepository{next: next, cache: cacheService}
}

func (r *cachedTierRepository) GetActive(ctx context.Context, name string) (*models.CommissionTier, error) {
	tier, err := r.cache.GetTier(ctx, name)
	if err != nil {
		log.Printf("⚠️ Tier cache read failed for %q: %v", name, err)
	}
	if tier != nil {
		return tier, nil
	}

	tier, err = r.next.GetActive(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := r.cache.CacheTier(ctx, tier); err != nil {
		log.Printf("⚠️ Tier cache write failed for %q: %v", name, err)
	}
	return tier, nil
}

func (r *cachedTierRepository) Upsert(ctx context.Context, tier *models.CommissionTier) error {
	if err := r.next.Upsert(ctx, tier); err != nil {
		return err
	}
	if err := r.cache.InvalidateTier(ctx, tier.Name); err != nil {
		log.Printf("⚠️ Tier cache invalidation failed for %q: %v", tier.Name, err)
	}
	return nil
}
