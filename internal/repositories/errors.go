package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrMerchantNotFound     = errors.New("merchant not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrSettlementNotFound   = errors.New("settlement not found")
	ErrSubscriptionNotFound = errors.New("webhook subscription not found")
	ErrAPIKeyNotFound       = errors.New("api key not found")
	ErrTierNotFound         = errors.New("commission tier not found")
	ErrDuplicate            = errors.New("record already exists")
	ErrInsufficientBalance  = errors.New("insufficient balance")
)

// InsufficientBalanceError is returned when a conditional debit matched no
// row. Available is the balance read inside the same database transaction.
type InsufficientBalanceError struct {
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d, requested %d", e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// IsUniqueViolation reports a postgres 23505 error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
