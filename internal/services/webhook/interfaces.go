package webhook

import (
	"context"
	"time"

	"digipay/internal/models"
)

// Notifier delivers signed merchant notifications. Send never returns an
// error: delivery problems are logged and recorded, not propagated.
type Notifier interface {
	Send(ctx context.Context, merchantID uint, event string, payload interface{}, destinationURL string) bool
}

type Repository interface {
	FindSubscription(ctx context.Context, merchantID uint, event string) (*models.WebhookSubscription, error)
	CreateSubscription(ctx context.Context, sub *models.WebhookSubscription) error
	CreateDelivery(ctx context.Context, d *models.WebhookDelivery) error
	UpdateDelivery(ctx context.Context, d *models.WebhookDelivery) error
	DueDeliveries(ctx context.Context, now time.Time, limit int) ([]models.WebhookDelivery, error)
}

type Observer interface {
	RecordWebhookDelivery(event string, success bool)
}
