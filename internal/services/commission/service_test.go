package commission

import (
	"context"
	"errors"
	"testing"

	domainerrors "digipay/internal/errors"
	"digipay/internal/models"
	"digipay/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMerchants struct {
	mock.Mock
}

func (m *MockMerchants) GetByID(ctx context.Context, id uint) (*models.Merchant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Merchant), args.Error(1)
}

type MockTiers struct {
	mock.Mock
}

func (m *MockTiers) GetActive(ctx context.Context, name string) (*models.CommissionTier, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommissionTier), args.Error(1)
}

func rate(v float64) *float64 { return &v }

func TestCommission_Rounding(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		rate   float64
		want   int64
	}{
		{"five percent", 1000, 5.0, 50},
		{"below half rounds down", 1010, 3.5, 35}, // 35.35
		{"exact half rounds up", 1500, 3.5, 53},   // 52.5
		{"small remainder", 1001, 2.0, 20},        // 20.02
		{"zero rate", 25000, 0, 0},
		{"fractional rate", 333, 1.5, 5}, // 4.995
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Commission(tt.amount, tt.rate))
		})
	}
}

func TestService_Calculate(t *testing.T) {
	tests := []struct {
		name      string
		merchant  *models.Merchant
		setupTier func(*MockTiers)
		want      Breakdown
	}{
		{
			name:     "client pays fee on top",
			merchant: &models.Merchant{ID: 1, CommissionTier: models.TierStandard, FeePayer: models.FeePayerClient},
			setupTier: func(m *MockTiers) {
				m.On("GetActive", mock.Anything, models.TierStandard).Return(&models.CommissionTier{Name: models.TierStandard, Rate: 5.0}, nil)
			},
			want: Breakdown{BaseAmount: 1000, CommissionAmount: 50, TotalAmount: 1050, CommissionRate: 5.0, FeePayer: models.FeePayerClient, Currency: "XAF"},
		},
		{
			name:     "merchant absorbs fee",
			merchant: &models.Merchant{ID: 1, CommissionTier: models.TierStandard, FeePayer: models.FeePayerMerchant},
			setupTier: func(m *MockTiers) {
				m.On("GetActive", mock.Anything, models.TierStandard).Return(&models.CommissionTier{Name: models.TierStandard, Rate: 5.0}, nil)
			},
			want: Breakdown{BaseAmount: 1000, CommissionAmount: 50, TotalAmount: 1000, CommissionRate: 5.0, FeePayer: models.FeePayerMerchant, Currency: "XAF"},
		},
		{
			name:     "custom zero rate wins over tier",
			merchant: &models.Merchant{ID: 1, CommissionTier: models.TierStandard, FeePayer: models.FeePayerClient, CustomCommissionRate: rate(0)},
			want:     Breakdown{BaseAmount: 1000, CommissionAmount: 0, TotalAmount: 1000, CommissionRate: 0, FeePayer: models.FeePayerClient, Currency: "XAF"},
		},
		{
			name:     "missing tier row uses premium default",
			merchant: &models.Merchant{ID: 1, CommissionTier: models.TierPremium},
			setupTier: func(m *MockTiers) {
				m.On("GetActive", mock.Anything, models.TierPremium).Return(nil, repositories.ErrTierNotFound)
			},
			want: Breakdown{BaseAmount: 1000, CommissionAmount: 35, TotalAmount: 1000, CommissionRate: 3.5, FeePayer: models.FeePayerMerchant, Currency: "XAF"},
		},
		{
			name:     "unreachable tier table uses enterprise default",
			merchant: &models.Merchant{ID: 1, CommissionTier: models.TierEnterprise},
			setupTier: func(m *MockTiers) {
				m.On("GetActive", mock.Anything, models.TierEnterprise).Return(nil, errors.New("connection refused"))
			},
			want: Breakdown{BaseAmount: 1000, CommissionAmount: 20, TotalAmount: 1000, CommissionRate: 2.0, FeePayer: models.FeePayerMerchant, Currency: "XAF"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merchants := new(MockMerchants)
			tiers := new(MockTiers)
			merchants.On("GetByID", mock.Anything, uint(1)).Return(tt.merchant, nil)
			if tt.setupTier != nil {
				tt.setupTier(tiers)
			}

			svc := NewService(merchants, tiers)
			got, err := svc.Calculate(context.Background(), 1000, 1)

			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
			merchants.AssertExpectations(t)
			tiers.AssertExpectations(t)
		})
	}
}

func TestService_MerchantNotFound(t *testing.T) {
	merchants := new(MockMerchants)
	merchants.On("GetByID", mock.Anything, uint(9)).Return(nil, repositories.ErrMerchantNotFound)

	svc := NewService(merchants, new(MockTiers))

	_, err := svc.Calculate(context.Background(), 1000, 9)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrMerchantNotFound))

	_, err = svc.Rate(context.Background(), 9)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrMerchantNotFound))
}

func TestService_RefundCommission(t *testing.T) {
	svc := NewService(new(MockMerchants), new(MockTiers))
	assert.Equal(t, int64(50), svc.RefundCommission(50))
}
