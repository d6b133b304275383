package settlement

import (
	"context"
	"time"

	"digipay/internal/models"
	"digipay/internal/repositories"
)

// Service defines the settlement orchestrator
type Service interface {
	// Request validates and debits the merchant balance, records a pending
	// settlement and hands it to the queue. The withdrawal happens later.
	Request(ctx context.Context, req Request) (*RequestResult, error)
	// Process claims a pending settlement and initiates the withdrawal.
	// It is safe to call more than once for the same settlement.
	Process(ctx context.Context, settlementID string) error
	// Complete finishes a processing settlement and flags its linked
	// transactions. Calls after the first are no-ops.
	Complete(ctx context.Context, id uint) (*models.Settlement, error)
	// Abandon fails a settlement that could not be processed and credits
	// the amount back. Settlements already past pending are left alone.
	Abandon(ctx context.Context, settlementID, reason string) (*models.Settlement, error)
	// RequeueStale enqueues settlements still pending since before.
	RequeueStale(ctx context.Context, before time.Time) (int, error)
	HandleWithdrawCallback(ctx context.Context, cb Callback) (*models.Settlement, error)
	List(ctx context.Context, merchantID uint, filter repositories.SettlementFilter) (*List, error)
	GetBalance(ctx context.Context, merchantID uint) (*Balance, error)
}

type MerchantReader interface {
	GetByID(ctx context.Context, id uint) (*models.Merchant, error)
}

type TransactionReader interface {
	UnsettledSuccessful(ctx context.Context, merchantID uint, limit int) ([]models.Transaction, error)
}

// Queue hands settlement ids from the request path to the worker.
type Queue interface {
	Enqueue(ctx context.Context, settlementID string) error
	// Dequeue returns ErrQueueEmpty when nothing arrived in time.
	Dequeue(ctx context.Context) (string, error)
	// Ack marks a dequeued job as finished.
	Ack(ctx context.Context, settlementID string) error
}

// Requeuer is implemented by queues that keep unacknowledged jobs and can
// put them back after a crash.
type Requeuer interface {
	Requeue(ctx context.Context) (int, error)
}
