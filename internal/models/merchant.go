package models

import (
	"time"
)

// Commission tiers
const (
	TierStandard   = "standard"
	TierPremium    = "premium"
	TierEnterprise = "enterprise"
)

// Fee payer policies
const (
	FeePayerMerchant = "merchant"
	FeePayerClient   = "client"
)

// KYC statuses surfaced by the onboarding workflow
const (
	KYCPending     = "pending"
	KYCUnderReview = "under_review"
	KYCApproved    = "approved"
	KYCRejected    = "rejected"
)

// Merchant carries the balance ledger. Balance, TotalRevenue and
// TotalCommissionPaid are only ever changed through conditional SQL updates
// in the repositories package.
type Merchant struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	UserID       uint   `gorm:"index" json:"user_id"`
	BusinessName string `gorm:"not null" json:"business_name"`
	BusinessType string `json:"business_type"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
	Website      string `json:"website,omitempty"`

	KYCStatus            string   `gorm:"default:'pending'" json:"kyc_status"`
	CommissionTier       string   `gorm:"default:'standard'" json:"commission_tier"`
	CustomCommissionRate *float64 `json:"custom_commission_rate,omitempty"`
	FeePayer             string   `gorm:"default:'merchant'" json:"fee_payer"`
	IsActive             bool     `gorm:"default:true" json:"is_active"`

	Balance             int64 `gorm:"not null;default:0;check:balance >= 0" json:"balance"`
	TotalRevenue        int64 `gorm:"not null;default:0" json:"total_revenue"`
	TotalCommissionPaid int64 `gorm:"not null;default:0" json:"total_commission_paid"`

	Settlement SettlementDetails `gorm:"embedded;embeddedPrefix:settlement_" json:"settlement_details"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SettlementDetails struct {
	MobileMoneyNumber       string `json:"mobile_money_number"`
	PreferredProvider       string `json:"preferred_provider,omitempty"`
	AutoSettlement          bool   `gorm:"default:false" json:"auto_settlement"`
	MinimumSettlementAmount int64  `gorm:"default:10000" json:"minimum_settlement_amount"`
}

// KYCApproved gates payment initiation.
func (m *Merchant) KYCApproved() bool {
	return m.KYCStatus == KYCApproved
}

// ClientPaysFee reports whether commission is added on top of the charge.
func (m *Merchant) ClientPaysFee() bool {
	return m.FeePayer == FeePayerClient
}
