package errors

var (
	ErrInvalidSubscription = &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_SUBSCRIPTION",
		Message: "a webhook subscription needs a url and at least one event",
	}
	ErrInvalidSignature = &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_SIGNATURE",
		Message: "invalid webhook signature",
	}
)
