package errors

import (
	stderrors "errors"
	"net/http"
	"testing"
)

func TestDomainError_IsMatchesOnCode(t *testing.T) {
	wrapped := WrapError(ErrTokenInvalid, stderrors.New("signature mismatch"))

	if !stderrors.Is(wrapped, ErrTokenInvalid) {
		t.Error("wrapped error must match its sentinel by code")
	}
	if stderrors.Is(wrapped, ErrTokenExpired) {
		t.Error("wrapped error must not match a different code")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := stderrors.New("db down")
	wrapped := WrapError(ErrInternal, cause)

	if !stderrors.Is(wrapped, cause) {
		t.Error("underlying cause must be reachable via errors.Is")
	}
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrAlreadyVerified, http.StatusBadRequest},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrTokenInvalid, http.StatusUnauthorized},
		{ErrTokenExpired, http.StatusUnauthorized},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrAccountNotActive, http.StatusForbidden},
		{ErrUserNotFound, http.StatusNotFound},
		{ErrDuplicateCredential, http.StatusConflict},
		{ErrInternal, http.StatusInternalServerError},
		{stderrors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := ToHTTPStatus(tt.err); got != tt.status {
			t.Errorf("ToHTTPStatus(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}

func TestValidationError(t *testing.T) {
	err := ValidationError("email is required")

	if !stderrors.Is(err, ErrInvalidInput) {
		t.Error("validation errors must share the VALIDATION_ERROR code")
	}
	if err.Message != "email is required" {
		t.Errorf("message = %q", err.Message)
	}
}
