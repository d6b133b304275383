package models

import (
	"time"

	"github.com/lib/pq"
)

// Settlement statuses
const (
	SettlementPending    = "pending"
	SettlementProcessing = "processing"
	SettlementCompleted  = "completed"
	SettlementFailed     = "failed"
)

// Settlement is one merchant payout. The balance is debited when the row
// is created; a failed settlement is credited back exactly once.
type Settlement struct {
	ID                uint   `gorm:"primarykey" json:"id"`
	SettlementID      string `gorm:"uniqueIndex;not null" json:"settlement_id"`
	MerchantID        uint   `gorm:"index;not null" json:"merchant_id"`
	Amount            int64  `gorm:"not null" json:"amount"`
	Currency          string `gorm:"default:'XAF'" json:"currency"`
	Status            string `gorm:"index;not null;default:'pending'" json:"status"`
	RecipientPhone    string `gorm:"not null" json:"recipient_phone"`
	ExternalID        string `gorm:"index" json:"external_id,omitempty"`
	WithdrawReference string `gorm:"index" json:"freemopay_withdraw_reference,omitempty"`
	FailureReason     string `json:"failure_reason,omitempty"`

	// Transactions is a reporting snapshot, not an accounting partition.
	Transactions pq.StringArray `gorm:"type:text[]" json:"transactions"`

	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
