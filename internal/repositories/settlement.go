package repositories

import (
	"context"
	"errors"
	"time"

	"digipay/internal/models"

	"gorm.io/gorm"
)

type SettlementFilter struct {
	Status string
	Page   int
	Limit  int
}

type SettlementRepository interface {
	// CreateWithDebit debits the merchant balance with a single
	// "balance >= amount" conditional update and inserts the settlement in
	// the same database transaction. A refused debit returns an
	// *InsufficientBalanceError and writes nothing.
	CreateWithDebit(ctx context.Context, s *models.Settlement) error
	GetByID(ctx context.Context, id uint) (*models.Settlement, error)
	GetBySettlementID(ctx context.Context, settlementID string) (*models.Settlement, error)
	// FindByWithdrawRef matches on externalID, the id we generated, and
	// falls back to the gateway reference only when externalID is empty.
	FindByWithdrawRef(ctx context.Context, reference, externalID string) (*models.Settlement, error)
	List(ctx context.Context, merchantID uint, filter SettlementFilter) ([]models.Settlement, int64, error)
	// StalePending returns pending settlements created before the cutoff,
	// oldest first.
	StalePending(ctx context.Context, before time.Time, limit int) ([]models.Settlement, error)

	// MarkProcessing claims a pending settlement for withdrawal.
	MarkProcessing(ctx context.Context, id uint, externalID string) (bool, error)
	SetWithdrawReference(ctx context.Context, id uint, reference string) error
	// MarkCompleted moves processing to completed and flags the linked
	// transactions as settled. The balance is not touched.
	MarkCompleted(ctx context.Context, id uint) (s *models.Settlement, applied bool, err error)
	// MarkFailed moves pending or processing to failed and credits the
	// amount back. The status guard makes the compensation happen once.
	MarkFailed(ctx context.Context, id uint, reason string) (s *models.Settlement, applied bool, err error)
}

type settlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) SettlementRepository {
	return &settlementRepository{db: db}
}

func (r *settlementRepository) CreateWithDebit(ctx context.Context, s *models.Settlement) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		res := db.Model(&models.Merchant{}).
			Where("id = ? AND balance >= ?", s.MerchantID, s.Amount).
			Update("balance", gorm.Expr("balance - ?", s.Amount))
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			var m models.Merchant
			if err := db.Select("id", "balance").First(&m, s.MerchantID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrMerchantNotFound
				}
				return err
			}
			return &InsufficientBalanceError{Available: m.Balance, Requested: s.Amount}
		}

		if err := db.Create(s).Error; err != nil {
			if IsUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
}

func (r *settlementRepository) GetByID(ctx context.Context, id uint) (*models.Settlement, error) {
	var s models.Settlement
	err := r.db.WithContext(ctx).First(&s, id).Error
	return firstSettlement(&s, err)
}

func (r *settlementRepository) GetBySettlementID(ctx context.Context, settlementID string) (*models.Settlement, error) {
	var s models.Settlement
	err := r.db.WithContext(ctx).Where("settlement_id = ?", settlementID).First(&s).Error
	return firstSettlement(&s, err)
}

func (r *settlementRepository) FindByWithdrawRef(ctx context.Context, reference, externalID string) (*models.Settlement, error) {
	if reference == "" && externalID == "" {
		return nil, ErrSettlementNotFound
	}

	q := r.db.WithContext(ctx).Model(&models.Settlement{})
	if externalID != "" {
		q = q.Where("external_id = ?", externalID)
	} else {
		q = q.Where("withdraw_reference = ?", reference)
	}

	var s models.Settlement
	err := q.Order("id ASC").First(&s).Error
	return firstSettlement(&s, err)
}

func (r *settlementRepository) List(ctx context.Context, merchantID uint, filter SettlementFilter) ([]models.Settlement, int64, error) {
	offset, limit := pageBounds(filter.Page, filter.Limit)

	q := r.db.WithContext(ctx).Model(&models.Settlement{}).Where("merchant_id = ?", merchantID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Settlement
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

func (r *settlementRepository) StalePending(ctx context.Context, before time.Time, limit int) ([]models.Settlement, error) {
	var out []models.Settlement
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.SettlementPending, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *settlementRepository) MarkProcessing(ctx context.Context, id uint, externalID string) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Settlement{}).
		Where("id = ? AND status = ?", id, models.SettlementPending).
		Updates(map[string]interface{}{
			"status":       models.SettlementProcessing,
			"external_id":  externalID,
			"processed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *settlementRepository) SetWithdrawReference(ctx context.Context, id uint, reference string) error {
	res := r.db.WithContext(ctx).Model(&models.Settlement{}).
		Where("id = ?", id).
		Update("withdraw_reference", reference)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSettlementNotFound
	}
	return nil
}

func (r *settlementRepository) MarkCompleted(ctx context.Context, id uint) (*models.Settlement, bool, error) {
	var (
		s       models.Settlement
		applied bool
	)

	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		now := time.Now()
		res := db.Model(&models.Settlement{}).
			Where("id = ? AND status = ?", id, models.SettlementProcessing).
			Updates(map[string]interface{}{
				"status":       models.SettlementCompleted,
				"completed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected == 1

		if err := db.First(&s, id).Error; err != nil {
			return err
		}
		if !applied || len(s.Transactions) == 0 {
			return nil
		}

		return db.Model(&models.Transaction{}).
			Where("merchant_id = ? AND transaction_id IN ? AND settled_to_merchant = ?", s.MerchantID, []string(s.Transactions), false).
			Updates(map[string]interface{}{
				"settled_to_merchant": true,
				"settlement_date":     now,
			}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrSettlementNotFound
		}
		return nil, false, err
	}
	return &s, applied, nil
}

func (r *settlementRepository) MarkFailed(ctx context.Context, id uint, reason string) (*models.Settlement, bool, error) {
	var (
		s       models.Settlement
		applied bool
	)

	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		res := db.Model(&models.Settlement{}).
			Where("id = ? AND status IN ?", id, []string{models.SettlementPending, models.SettlementProcessing}).
			Updates(map[string]interface{}{
				"status":         models.SettlementFailed,
				"failure_reason": reason,
			})
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected == 1

		if err := db.First(&s, id).Error; err != nil {
			return err
		}
		if !applied {
			return nil
		}
		return creditBalance(db, s.MerchantID, s.Amount)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrSettlementNotFound
		}
		return nil, false, err
	}
	return &s, applied, nil
}

func firstSettlement(s *models.Settlement, err error) (*models.Settlement, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettlementNotFound
		}
		return nil, err
	}
	return s, nil
}
