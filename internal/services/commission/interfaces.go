package commission

import (
	"context"

	"digipay/internal/models"
)

// Service computes the fee and total charge for a payment.
type Service interface {
	// Calculate resolves merchantID and prices baseAmount for it.
	Calculate(ctx context.Context, baseAmount int64, merchantID uint) (*Breakdown, error)
	// CalculateFor prices baseAmount for an already loaded merchant.
	CalculateFor(ctx context.Context, baseAmount int64, merchant *models.Merchant) *Breakdown
	// Rate returns the effective commission rate in percent.
	Rate(ctx context.Context, merchantID uint) (float64, error)
	RefundCommission(commissionAmount int64) int64
}

type MerchantReader interface {
	GetByID(ctx context.Context, id uint) (*models.Merchant, error)
}

type TierReader interface {
	GetActive(ctx context.Context, name string) (*models.CommissionTier, error)
}
