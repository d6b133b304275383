package repositories

import (
	"context"
	"errors"
	"time"

	"digipay/internal/models"

	"gorm.io/gorm"
)

type TransactionFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

type DailyVolume struct {
	Day    string `json:"date"`
	Volume int64  `json:"volume"`
	Count  int64  `json:"count"`
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByTransactionID(ctx context.Context, merchantID uint, transactionID string) (*models.Transaction, error)
	// FindByGatewayRef matches on the unique externalID and falls back to
	// the gateway reference only when externalID is empty.
	FindByGatewayRef(ctx context.Context, reference, externalID string) (*models.Transaction, error)
	List(ctx context.Context, merchantID uint, filter TransactionFilter) ([]models.Transaction, int64, error)
	UnsettledSuccessful(ctx context.Context, merchantID uint, limit int) ([]models.Transaction, error)

	// MarkSuccess moves a pending transaction to success and credits the
	// merchant ledger in the same database transaction. applied is false
	// when the row was no longer pending; the current row is returned
	// either way.
	MarkSuccess(ctx context.Context, id uint, reference string) (tx *models.Transaction, applied bool, err error)
	// MarkFailed moves a pending transaction to failed and records reason
	// in metadata. No balance effect.
	MarkFailed(ctx context.Context, id uint, reason string) (tx *models.Transaction, applied bool, err error)

	DailyVolume(ctx context.Context, merchantID uint, since time.Time) ([]DailyVolume, error)
	StatusCounts(ctx context.Context, merchantID uint) (map[string]int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *transactionRepository) GetByTransactionID(ctx context.Context, merchantID uint, transactionID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND merchant_id = ?", transactionID, merchantID).
		First(&tx).Error
	return firstTransaction(&tx, err)
}

func (r *transactionRepository) FindByGatewayRef(ctx context.Context, reference, externalID string) (*models.Transaction, error) {
	if reference == "" && externalID == "" {
		return nil, ErrTransactionNotFound
	}

	q := r.db.WithContext(ctx).Model(&models.Transaction{})
	if externalID != "" {
		q = q.Where("external_id = ?", externalID)
	} else {
		q = q.Where("gateway_reference = ?", reference)
	}

	var tx models.Transaction
	err := q.Order("id ASC").First(&tx).Error
	return firstTransaction(&tx, err)
}

func (r *transactionRepository) List(ctx context.Context, merchantID uint, filter TransactionFilter) ([]models.Transaction, int64, error) {
	offset, limit := pageBounds(filter.Page, filter.Limit)

	q := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("merchant_id = ?", merchantID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("transaction_id ILIKE ? OR gateway_reference ILIKE ? OR customer_phone ILIKE ? OR customer_email ILIKE ?",
			like, like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []models.Transaction
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&txs).Error
	return txs, total, err
}

func (r *transactionRepository) UnsettledSuccessful(ctx context.Context, merchantID uint, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND status = ? AND settled_to_merchant = ?", merchantID, models.TransactionSuccess, false).
		Order("created_at ASC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *transactionRepository) MarkSuccess(ctx context.Context, id uint, reference string) (*models.Transaction, bool, error) {
	var (
		tx      models.Transaction
		applied bool
	)

	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		updates := map[string]interface{}{"status": models.TransactionSuccess}
		if reference != "" {
			updates["gateway_reference"] = reference
		}

		res := db.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", id, models.TransactionPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected == 1

		if err := db.First(&tx, id).Error; err != nil {
			return err
		}
		if !applied {
			return nil
		}

		res = db.Model(&models.Merchant{}).
			Where("id = ?", tx.MerchantID).
			Updates(map[string]interface{}{
				"balance":               gorm.Expr("balance + ?", tx.NetAmount()),
				"total_revenue":         gorm.Expr("total_revenue + ?", tx.TotalAmount),
				"total_commission_paid": gorm.Expr("total_commission_paid + ?", tx.CommissionAmount),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMerchantNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrTransactionNotFound
		}
		return nil, false, err
	}
	return &tx, applied, nil
}

func (r *transactionRepository) MarkFailed(ctx context.Context, id uint, reason string) (*models.Transaction, bool, error) {
	var (
		tx      models.Transaction
		applied bool
	)

	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		res := db.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", id, models.TransactionPending).
			Updates(map[string]interface{}{
				"status":   models.TransactionFailed,
				"metadata": gorm.Expr("COALESCE(metadata, '{}'::jsonb) || jsonb_build_object('failureReason', ?::text)", reason),
			})
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected == 1
		return db.First(&tx, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrTransactionNotFound
		}
		return nil, false, err
	}
	return &tx, applied, nil
}

func (r *transactionRepository) DailyVolume(ctx context.Context, merchantID uint, since time.Time) ([]DailyVolume, error) {
	var rows []DailyVolume
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COALESCE(SUM(total_amount), 0) AS volume, COUNT(*) AS count").
		Where("merchant_id = ? AND status = ? AND created_at >= ?", merchantID, models.TransactionSuccess, since).
		Group("day").
		Order("day ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *transactionRepository) StatusCounts(ctx context.Context, merchantID uint) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("status, COUNT(*) AS count").
		Where("merchant_id = ?", merchantID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func firstTransaction(tx *models.Transaction, err error) (*models.Transaction, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// pageBounds converts 1-based page/limit into offset/limit, limit capped at 100.
func pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return (page - 1) * limit, limit
}
