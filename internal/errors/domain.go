// Package errors defines the classified failures returned by the payment
// and settlement core. Every DomainError carries a Kind that transport
// layers map to a status code and a stable Code for API consumers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a DomainError.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindPrecondition Kind = "precondition"
	KindGateway      Kind = "gateway"
	KindInternal     Kind = "internal"
)

type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is matches on Code so that sentinel comparisons survive WithMessage and
// WithCause copies.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy carrying a more specific message.
func (e *DomainError) WithMessage(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

// WithCause returns a copy wrapping err.
func (e *DomainError) WithCause(err error) *DomainError {
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: err}
}

// HTTPStatus maps the error kind to a response status.
func (e *DomainError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPrecondition:
		return http.StatusUnprocessableEntity
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// As extracts a DomainError from err. Unclassified errors come back as
// internal errors wrapping the original.
func As(err error) *DomainError {
	if err == nil {
		return nil
	}
	var de *DomainError
	if stderrors.As(err, &de) {
		return de
	}
	return ErrInternal.WithCause(err)
}

// Is reports whether err carries the same code as target.
func Is(err error, target *DomainError) bool {
	return stderrors.Is(err, target)
}

var (
	ErrInternal = &DomainError{
		Kind:    KindInternal,
		Code:    "INTERNAL_ERROR",
		Message: "internal error",
	}
	ErrGateway = &DomainError{
		Kind:    KindGateway,
		Code:    "GATEWAY_ERROR",
		Message: "payment gateway error",
	}
)

// Gateway classifies an upstream provider failure, keeping its message.
func Gateway(message string, cause error) *DomainError {
	if message == "" {
		message = ErrGateway.Message
	}
	return &DomainError{Kind: KindGateway, Code: ErrGateway.Code, Message: message, Err: cause}
}

// Internal wraps an unexpected failure.
func Internal(cause error) *DomainError {
	return ErrInternal.WithCause(cause)
}
