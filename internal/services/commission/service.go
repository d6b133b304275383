package commission

import (
	"context"
	"errors"
	"fmt"
	"log"

	domainerrors "digipay/internal/errors"
	"digipay/internal/models"
	"digipay/internal/repositories"

	"github.com/shopspring/decimal"
)

const fallbackRate = 5.0

var hundred = decimal.NewFromInt(100)

type service struct {
	merchants MerchantReader
	tiers     TierReader
}

// NewService creates a new commission calculator
func NewService(merchants MerchantReader, tiers TierReader) Service {
	if merchants == nil {
		panic("merchant reader is required")
	}
	if tiers == nil {
		panic("tier reader is required")
	}
	return &service{merchants: merchants, tiers: tiers}
}

func (s *service) Calculate(ctx context.Context, baseAmount int64, merchantID uint) (*Breakdown, error) {
	merchant, err := s.loadMerchant(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	return s.CalculateFor(ctx, baseAmount, merchant), nil
}

func (s *service) CalculateFor(ctx context.Context, baseAmount int64, merchant *models.Merchant) *Breakdown {
	rate := s.effectiveRate(ctx, merchant)

	feePayer := merchant.FeePayer
	if feePayer == "" {
		feePayer = models.FeePayerMerchant
	}

	commission := Commission(baseAmount, rate)
	total := baseAmount
	if feePayer == models.FeePayerClient {
		total = baseAmount + commission
	}

	return &Breakdown{
		BaseAmount:       baseAmount,
		CommissionAmount: commission,
		TotalAmount:      total,
		CommissionRate:   rate,
		FeePayer:         feePayer,
		Currency:         models.CurrencyXAF,
	}
}

func (s *service) Rate(ctx context.Context, merchantID uint) (float64, error) {
	merchant, err := s.loadMerchant(ctx, merchantID)
	if err != nil {
		return 0, err
	}
	return s.effectiveRate(ctx, merchant), nil
}

// RefundCommission returns the full original commission; refunds are never prorated.
func (s *service) RefundCommission(commissionAmount int64) int64 {
	return commissionAmount
}

// effectiveRate: custom rate (zero included), then the active tier row,
// then the built-in tier default. A tier lookup failure falls through to
// the default.
func (s *service) effectiveRate(ctx context.Context, merchant *models.Merchant) float64 {
	if merchant.CustomCommissionRate != nil {
		return *merchant.CustomCommissionRate
	}

	tier, err := s.tiers.GetActive(ctx, merchant.CommissionTier)
	if err == nil {
		return tier.Rate
	}
	if !errors.Is(err, repositories.ErrTierNotFound) {
		log.Printf("⚠️ commission tier lookup failed for %q, using default: %v", merchant.CommissionTier, err)
	}

	if rate, ok := models.DefaultCommissionRates[merchant.CommissionTier]; ok {
		return rate
	}
	return fallbackRate
}

func (s *service) loadMerchant(ctx context.Context, merchantID uint) (*models.Merchant, error) {
	merchant, err := s.merchants.GetByID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, repositories.ErrMerchantNotFound) {
			return nil, domainerrors.ErrMerchantNotFound
		}
		return nil, domainerrors.ErrInternal.WithCause(fmt.Errorf("load merchant %d: %w", merchantID, err))
	}
	return merchant, nil
}

// Commission is round(amount * rate / 100), half away from zero, in whole XAF.
func Commission(amount int64, rate float64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromFloat(rate)).
		Div(hundred).
		Round(0).
		IntPart()
}
