package errors

var (
	ErrInvalidAmount = &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_AMOUNT",
		Message: "amount must be greater than zero",
	}
	ErrBelowMinimum = &DomainError{
		Kind:    KindValidation,
		Code:    "BELOW_MINIMUM",
		Message: "amount is below the minimum settlement amount",
	}
	ErrMissingRecipient = &DomainError{
		Kind:    KindValidation,
		Code:    "MISSING_RECIPIENT",
		Message: "no mobile money number configured for settlement",
	}
	ErrInsufficientBalance = &DomainError{
		Kind:    KindPrecondition,
		Code:    "INSUFFICIENT_BALANCE",
		Message: "insufficient balance",
	}
	ErrSettlementNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "SETTLEMENT_NOT_FOUND",
		Message: "settlement not found",
	}
)

// InsufficientBalance reports the balance observed when a debit was refused.
func InsufficientBalance(available, requested int64) *DomainError {
	return ErrInsufficientBalance.WithMessage("Insufficient balance. Available: %d, Requested: %d", available, requested)
}

// BelowMinimum reports the configured settlement floor.
func BelowMinimum(minimum int64) *DomainError {
	return ErrBelowMinimum.WithMessage("Minimum settlement amount is %d XAF", minimum)
}
