package repositories

import (
	"context"
	"errors"

	"digipay/internal/models"

	"gorm.io/gorm"
)

type CommissionTierRepository interface {
	// GetActive returns the active tier row for name.
	GetActive(ctx context.Context, name string) (*models.CommissionTier, error)
	Upsert(ctx context.Context, tier *models.CommissionTier) error
}

type commissionTierRepository struct {
	db *gorm.DB
}

func NewCommissionTierRepository(db *gorm.DB) CommissionTierRepository {
	return &commissionTierRepository{db: db}
}

func (r *commissionTierRepository) GetActive(ctx context.Context, name string) (*models.CommissionTier, error) {
	var tier models.CommissionTier
	err := r.db.WithContext(ctx).
		Where("name = ? AND is_active = ?", name, true).
		First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTierNotFound
		}
		return nil, err
	}
	return &tier, nil
}

func (r *commissionTierRepository) Upsert(ctx context.Context, tier *models.CommissionTier) error {
	var existing models.CommissionTier
	err := r.db.WithContext(ctx).Where("name = ?", tier.Name).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return r.db.WithContext(ctx).Create(tier).Error
	case err != nil:
		return err
	}
	tier.ID = existing.ID
	return r.db.WithContext(ctx).Save(tier).Error
}
