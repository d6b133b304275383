package payment

import (
	"context"

	"digipay/internal/models"
	"digipay/internal/repositories"
)

// Service defines the payment service interface
type Service interface {
	// Initiate validates the merchant, prices the payment, asks the gateway
	// to charge the customer and persists a pending transaction.
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	// GetTransaction returns a merchant's transaction, reconciling it with
	// the gateway first when it is still pending.
	GetTransaction(ctx context.Context, merchantID uint, transactionID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, merchantID uint, filter repositories.TransactionFilter) (*TransactionList, error)
	// HandleCallback applies a gateway payment callback. Duplicate callbacks
	// return the stored transaction without side effects.
	HandleCallback(ctx context.Context, cb Callback) (*models.Transaction, error)
	Analytics(ctx context.Context, merchantID uint) (*Analytics, error)
}

type MerchantReader interface {
	GetByID(ctx context.Context, id uint) (*models.Merchant, error)
}
