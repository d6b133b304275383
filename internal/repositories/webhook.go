package repositories

import (
	"context"
	"errors"
	"time"

	"digipay/internal/models"

	"gorm.io/gorm"
)

type WebhookRepository interface {
	// FindSubscription returns the merchant's active subscription for
	// event. An empty event matches any active subscription of the
	// merchant.
	FindSubscription(ctx context.Context, merchantID uint, event string) (*models.WebhookSubscription, error)
	CreateSubscription(ctx context.Context, sub *models.WebhookSubscription) error

	CreateDelivery(ctx context.Context, d *models.WebhookDelivery) error
	UpdateDelivery(ctx context.Context, d *models.WebhookDelivery) error
	// DueDeliveries returns failed, non dead-lettered deliveries whose
	// NextRetryAt is at or before now.
	DueDeliveries(ctx context.Context, now time.Time, limit int) ([]models.WebhookDelivery, error)
}

type webhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

func (r *webhookRepository) FindSubscription(ctx context.Context, merchantID uint, event string) (*models.WebhookSubscription, error) {
	q := r.db.WithContext(ctx).Where("merchant_id = ? AND is_active = ?", merchantID, true)
	if event != "" {
		q = q.Where("? = ANY(events)", event)
	}

	var sub models.WebhookSubscription
	if err := q.Order("id ASC").First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *webhookRepository) CreateSubscription(ctx context.Context, sub *models.WebhookSubscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *webhookRepository) CreateDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *webhookRepository) UpdateDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *webhookRepository) DueDeliveries(ctx context.Context, now time.Time, limit int) ([]models.WebhookDelivery, error) {
	var out []models.WebhookDelivery
	err := r.db.WithContext(ctx).
		Where("success = ? AND dead_lettered = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", false, false, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
