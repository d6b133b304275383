package errors

var (
	ErrMerchantNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "MERCHANT_NOT_FOUND",
		Message: "merchant not found",
	}
	ErrMerchantInactive = &DomainError{
		Kind:    KindPrecondition,
		Code:    "MERCHANT_INACTIVE",
		Message: "merchant account is inactive",
	}
	ErrKycNotApproved = &DomainError{
		Kind:    KindPrecondition,
		Code:    "KYC_NOT_APPROVED",
		Message: "KYC verification must be approved before accepting payments",
	}
	ErrTransactionNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
	}
	ErrInvalidPhone = &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_PHONE",
		Message: "customer phone number is required",
	}
	ErrInvalidCallback = &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_CALLBACK",
		Message: "callback must carry a reference or an externalId",
	}
)
