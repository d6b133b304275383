package models

import (
	"time"
)

// Transaction statuses
const (
	TransactionPending  = "pending"
	TransactionSuccess  = "success"
	TransactionFailed   = "failed"
	TransactionRefunded = "refunded"
)

const (
	PaymentMethodMobileMoney = "mobile_money"
	CurrencyXAF              = "XAF"
)

// Transaction is one customer-to-merchant charge. Amounts are in XAF
// minor units. CommissionRate is the rate snapshot taken at creation.
type Transaction struct {
	ID               uint   `gorm:"primarykey" json:"id"`
	TransactionID    string `gorm:"uniqueIndex;not null" json:"transaction_id"`
	MerchantID       uint   `gorm:"index;not null" json:"merchant_id"`
	GatewayReference string `gorm:"index" json:"gateway_reference,omitempty"`
	ExternalID       string `gorm:"uniqueIndex" json:"external_id"`

	BaseAmount       int64   `gorm:"not null" json:"base_amount"`
	CommissionAmount int64   `gorm:"not null" json:"commission_amount"`
	TotalAmount      int64   `gorm:"not null" json:"total_amount"`
	CommissionRate   float64 `gorm:"not null" json:"commission_rate"`
	FeePayer         string  `json:"fee_payer"`
	Currency         string  `gorm:"default:'XAF'" json:"currency"`

	Status        string `gorm:"index;not null;default:'pending'" json:"status"`
	PaymentMethod string `gorm:"default:'mobile_money'" json:"payment_method"`
	Description   string `json:"description,omitempty"`

	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	Metadata      JSON   `gorm:"type:jsonb" json:"metadata,omitempty"`
	WebhookURL    string `json:"webhook_url,omitempty"`

	SettledToMerchant bool       `gorm:"index;default:false" json:"settled_to_merchant"`
	SettlementDate    *time.Time `json:"settlement_date,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NetAmount is what the merchant balance gains when the charge succeeds.
func (t *Transaction) NetAmount() int64 {
	return t.BaseAmount - t.CommissionAmount
}

func (t *Transaction) IsPending() bool {
	return t.Status == TransactionPending
}
