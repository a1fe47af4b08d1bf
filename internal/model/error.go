package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON           = "INVALID_JSON"
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeProvider              = "PROVIDER_ERROR"
	ErrCodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	ErrCodePersistence           = "PERSISTENCE_ERROR"
	ErrCodeInvalidPostalCode     = "INVALID_POSTAL_CODE"
	ErrCodeInvalidTransition     = "INVALID_TRANSITION"
	ErrCodeInvalidState          = "INVALID_STATE"
	ErrCodeCheckoutInFlight      = "CHECKOUT_IN_FLIGHT"
	ErrCodeOrderNotFound         = "ORDER_NOT_FOUND"
	ErrCodeProductNotFound       = "PRODUCT_NOT_FOUND"
	ErrCodeSessionNotFound       = "SESSION_NOT_FOUND"
	ErrCodeCartLineNotFound      = "CART_LINE_NOT_FOUND"
	ErrCodeInvalidQuantity       = "INVALID_QUANTITY"
	ErrCodeUnauthorised          = "UNAUTHORIZED"
	ErrCodeInternalError         = "INTERNAL_ERROR"
)

// DomainError is a business error carrying a stable code.
// Two DomainErrors match with errors.Is when their codes are equal, so the
// sentinels below can be used to test the kind of any error instance.
type DomainError struct {
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

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on code. A PROVIDER_NOT_CONFIGURED error is also a provider error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return e.Code == ErrCodeProviderNotConfigured && t.Code == ErrCodeProvider
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Kind sentinels, for use with errors.Is.
var (
	ErrValidation            = NewDomainError(ErrCodeValidation, "validation failed")
	ErrProvider              = NewDomainError(ErrCodeProvider, "payment provider error")
	ErrProviderNotConfigured = NewDomainError(ErrCodeProviderNotConfigured, "payment provider not configured")
	ErrPersistence           = NewDomainError(ErrCodePersistence, "order could not be recorded")
	ErrInvalidPostalCode     = NewDomainError(ErrCodeInvalidPostalCode, "invalid postal code")
	ErrInvalidTransition     = NewDomainError(ErrCodeInvalidTransition, "invalid status transition")
	ErrInvalidState          = NewDomainError(ErrCodeInvalidState, "action not allowed in current step")
	ErrCheckoutInFlight      = NewDomainError(ErrCodeCheckoutInFlight, "checkout already in progress")
	ErrOrderNotFound         = NewDomainError(ErrCodeOrderNotFound, "order not found")
	ErrProductNotFound       = NewDomainError(ErrCodeProductNotFound, "product not found")
	ErrSessionNotFound       = NewDomainError(ErrCodeSessionNotFound, "session not found")
	ErrCartLineNotFound      = NewDomainError(ErrCodeCartLineNotFound, "cart line not found")
	ErrInvalidQuantity       = NewDomainError(ErrCodeInvalidQuantity, "quantity must be greater than zero")
)

// ValidationError reports malformed or incomplete input.
func ValidationError(format string, args ...any) error {
	return &DomainError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ProviderError wraps a failure reported by, or while reaching, a payment provider.
func ProviderError(provider string, err error) error {
	return &DomainError{Code: ErrCodeProvider, Message: provider + " rejected the checkout", Err: err}
}

// ProviderNotConfiguredError reports a missing provider credential or registration.
func ProviderNotConfiguredError(provider string) error {
	return &DomainError{Code: ErrCodeProviderNotConfigured, Message: fmt.Sprintf("payment provider %q is not configured", provider)}
}

// PersistenceError wraps a failed order write.
func PersistenceError(err error) error {
	return &DomainError{Code: ErrCodePersistence, Message: "order could not be recorded", Err: err}
}

// InvalidPostalCodeError reports an unusable postal code.
func InvalidPostalCodeError(code string) error {
	return &DomainError{Code: ErrCodeInvalidPostalCode, Message: fmt.Sprintf("invalid postal code %q", code)}
}

// InvalidTransitionError reports a rejected status change.
func InvalidTransitionError(from Status, reason string) error {
	return &DomainError{Code: ErrCodeInvalidTransition, Message: fmt.Sprintf("cannot advance order from %s: %s", from, reason)}
}

// InvalidStateError reports a wizard event that is not allowed in the current step.
func InvalidStateError(event, state string) error {
	return &DomainError{Code: ErrCodeInvalidState, Message: fmt.Sprintf("%s is not allowed in step %s", event, state)}
}

// CodeOf returns the domain code of err, or ErrCodeInternalError.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}
