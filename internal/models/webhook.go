package models

import (
	"time"

	"github.com/lib/pq"
)

// Merchant-facing webhook events
const (
	EventPaymentSuccess      = "payment.success"
	EventPaymentFailed       = "payment.failed"
	EventRefundProcessed     = "refund.processed"
	EventSettlementCompleted = "settlement.completed"
)

// WebhookEvents lists every event a subscription may filter on.
var WebhookEvents = []string{
	EventPaymentSuccess,
	EventPaymentFailed,
	EventRefundProcessed,
	EventSettlementCompleted,
}

type WebhookSubscription struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	MerchantID uint           `gorm:"index;not null" json:"merchant_id"`
	URL        string         `gorm:"not null" json:"url"`
	Events     pq.StringArray `gorm:"type:text[]" json:"events"`
	Secret     string         `gorm:"not null" json:"-"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Subscribes reports whether the subscription accepts event.
func (w *WebhookSubscription) Subscribes(event string) bool {
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

// WebhookDelivery is the audit log of every outbound attempt. Failed rows
// carry NextRetryAt until they succeed or are dead-lettered.
type WebhookDelivery struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	MerchantID     uint       `gorm:"index;not null" json:"merchant_id"`
	SubscriptionID *uint      `gorm:"index" json:"subscription_id,omitempty"`
	Event          string     `gorm:"index" json:"event"`
	URL            string     `gorm:"not null" json:"url"`
	Payload        string     `gorm:"type:text" json:"payload"`
	Signature      string     `json:"signature"`
	StatusCode     int        `json:"status_code"`
	Response       string     `gorm:"type:text" json:"response"`
	Success        bool       `gorm:"index" json:"success"`
	Attempts       int        `gorm:"default:1" json:"attempts"`
	NextRetryAt    *time.Time `gorm:"index" json:"next_retry_at,omitempty"`
	DeadLettered   bool       `gorm:"default:false" json:"dead_lettered"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func IsWebhookEvent(event string) bool {
	for _, e := range WebhookEvents {
		if e == event {
			return true
		}
	}
	return false
}
