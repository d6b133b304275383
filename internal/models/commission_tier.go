package models

import (
	"time"

	"github.com/lib/pq"
)

// DefaultCommissionRates apply when the tier table has no active row.
var DefaultCommissionRates = map[string]float64{
	TierStandard:   5.0,
	TierPremium:    3.5,
	TierEnterprise: 2.0,
}

type CommissionTier struct {
	ID                   uint           `gorm:"primarykey" json:"id"`
	Name                 string         `gorm:"uniqueIndex;not null" json:"name"`
	Rate                 float64        `gorm:"not null" json:"rate"`
	MinTransactionVolume int64          `gorm:"default:0" json:"min_transaction_volume"`
	Features             pq.StringArray `gorm:"type:text[]" json:"features"`
	IsActive             bool           `gorm:"default:true" json:"is_active"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}
