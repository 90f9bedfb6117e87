package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on the error code so wrapped instances compare equal to the
// predefined sentinel they were derived from.
func (e *DomainError) Is(target error) bool {
	var domainErr *DomainError
	if errors.As(target, &domainErr) {
		return e.Code == domainErr.Code
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// ValidationError builds a VALIDATION_ERROR carrying field-level detail.
func ValidationError(detail string) *DomainError {
	return &DomainError{
		Code:    "VALIDATION_ERROR",
		Message: detail,
	}
}

// Predefined domain errors
var (
	// Credential errors
	ErrDuplicateCredential = NewDomainError("DUPLICATE_CREDENTIAL", "email or phone already registered")
	ErrInvalidCredentials  = NewDomainError("INVALID_CREDENTIALS", "invalid credentials")
	ErrUserNotFound        = NewDomainError("USER_NOT_FOUND", "user not found")
	ErrAccountNotActive    = NewDomainError("ACCOUNT_NOT_ACTIVE", "account is not active")

	// Token errors
	ErrTokenInvalid = NewDomainError("TOKEN_INVALID", "invalid token")
	ErrTokenExpired = NewDomainError("TOKEN_EXPIRED", "token has expired")
	ErrUnauthorized = NewDomainError("UNAUTHORIZED", "unauthorized")

	// Verification errors
	ErrAlreadyVerified = NewDomainError("ALREADY_VERIFIED", "email already verified")

	// Validation errors
	ErrInvalidInput = NewDomainError("VALIDATION_ERROR", "invalid input")

	// System errors
	ErrInternal = NewDomainError("INTERNAL_ERROR", "internal server error")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	// Default to internal server error for unknown errors
	return http.StatusInternalServerError
}

// domainErrorToHTTPStatus maps specific domain errors to HTTP status codes
func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request
	case "VALIDATION_ERROR", "ALREADY_VERIFIED":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "UNAUTHORIZED", "INVALID_CREDENTIALS", "TOKEN_INVALID", "TOKEN_EXPIRED":
		return http.StatusUnauthorized

	// 403 Forbidden
	case "ACCOUNT_NOT_ACTIVE":
		return http.StatusForbidden

	// 404 Not Found
	case "USER_NOT_FOUND":
		return http.StatusNotFound

	// 409 Conflict
	case "DUPLICATE_CREDENTIAL":
		return http.StatusConflict

	// 500 Internal Server Error (default)
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts error message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return err.Error()
}
