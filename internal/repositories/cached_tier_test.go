package repositories

import (
	"context"
	"testing"
	"time"

	"digipay/internal/models"
	"digipay/internal/repositories/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTierRepository struct {
	mock.Mock
}

func (m *MockTierRepository) GetActive(ctx context.Context, name string) (*models.CommissionTier, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommissionTier), args.Error(1)
}

func (m *MockTierRepository) Upsert(ctx context.Context, tier *models.CommissionTier) error {
	return m.Called(ctx, tier).Error(0)
}

func newTierCache(t *testing.T) (*miniredis.Miniredis, *cache.CacheService) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, cache.NewCacheService(client, time.Minute)
}

func TestCachedTierRepository_ReadThrough(t *testing.T) {
	_, cacheService := newTierCache(t)
	ctx := context.Background()

	next := new(MockTierRepository)
	next.On("GetActive", mock.Anything, models.TierPremium).
		Return(&models.CommissionTier{ID: 2, Name: models.TierPremium, Rate: 3.5, IsActive: true}, nil).Once()

	repo := NewCachedTierRepository(next, cacheService)

	for i := 0; i < 3; i++ {
		tier, err := repo.GetActive(ctx, models.TierPremium)
		require.NoError(t, err)
		assert.Equal(t, 3.5, tier.Rate)
	}
	next.AssertNumberOfCalls(t, "GetActive", 1)
}

func TestCachedTierRepository_NotFoundIsNotCached(t *testing.T) {
	_, cacheService := newTierCache(t)
	ctx := context.Background()

	next := new(MockTierRepository)
	next.On("GetActive", mock.Anything, "gold").Return(nil, ErrTierNotFound).Twice()

	repo := NewCachedTierRepository(next, cacheService)

	for i := 0; i < 2; i++ {
		_, err := repo.GetActive(ctx, "gold")
		assert.ErrorIs(t, err, ErrTierNotFound)
	}
	next.AssertExpectations(t)
}

func TestCachedTierRepository_UpsertInvalidates(t *testing.T) {
	_, cacheService := newTierCache(t)
	ctx := context.Background()

	next := new(MockTierRepository)
	next.On("GetActive", mock.Anything, models.TierStandard).
		Return(&models.CommissionTier{Name: models.TierStandard, Rate: 5}, nil).Once()
	next.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()
	next.On("GetActive", mock.Anything, models.TierStandard).
		Return(&models.CommissionTier{Name: models.TierStandard, Rate: 4}, nil).Once()

	repo := NewCachedTierRepository(next, cacheService)

	tier, err := repo.GetActive(ctx, models.TierStandard)
	require.NoError(t, err)
	assert.Equal(t, 5.0, tier.Rate)

	require.NoError(t, repo.Upsert(ctx, &models.CommissionTier{Name: models.TierStandard, Rate: 4}))

	tier, err = repo.GetActive(ctx, models.TierStandard)
	require.NoError(t, err)
	assert.Equal(t, 4.0, tier.Rate)
}

func TestCachedTierRepository_RedisDownFallsBack(t *testing.T) {
	mr, cacheService := newTierCache(t)
	mr.Close()

	next := new(MockTierRepository)
	next.On("GetActive", mock.Anything, models.TierStandard).
		Return(&models.CommissionTier{Name: models.TierStandard, Rate: 5}, nil)

	tier, err := NewCachedTierRepository(next, cacheService).GetActive(context.Background(), models.TierStandard)
	require.NoError(t, err)
	assert.Equal(t, 5.0, tier.Rate)
}

func TestNewCachedTierRepository_NilCache(t *testing.T) {
	next := new(MockTierRepository)
	assert.Same(t, CommissionTierRepository(next), NewCachedTierRepository(next, nil))
}
