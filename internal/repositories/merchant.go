package repositories

import (
	"context"
	"errors"

	"digipay/internal/models"

	"gorm.io/gorm"
)

type MerchantRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Merchant, error)
	Create(ctx context.Context, merchant *models.Merchant) error
}

type merchantRepository struct {
	db *gorm.DB
}

func NewMerchantRepository(db *gorm.DB) MerchantRepository {
	return &merchantRepository{db: db}
}

func (r *merchantRepository) GetByID(ctx context.Context, id uint) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := r.db.WithContext(ctx).First(&merchant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMerchantNotFound
		}
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepository) Create(ctx context.Context, merchant *models.Merchant) error {
	if err := r.db.WithContext(ctx).Create(merchant).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// creditBalance is an unconditional balance increment inside tx.
func creditBalance(tx *gorm.DB, merchantID uint, amount int64) error {
	res := tx.Model(&models.Merchant{}).
		Where("id = ?", merchantID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMerchantNotFound
	}
	return nil
}
