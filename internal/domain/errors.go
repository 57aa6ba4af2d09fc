package domain

import (
	"errors"
	"net/http"
)

// Sentinel errors for the drive core - use with errors.Is()
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrValidation       = errors.New("validation failed")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrConflict         = errors.New("already exists")
	ErrKeyService       = errors.New("key service unavailable")
	ErrLoginRequired    = errors.New("login required")
	ErrInvalidKey       = errors.New("invalid encryption key")
	ErrDecryption       = errors.New("decryption failed")
	ErrStorage          = errors.New("storage failure")
)

// HTTPError defines errors that carry their own HTTP status code.
// Implementing this interface enables extensible error handling.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusOf maps a domain error to an HTTP status code.
// Unrecognized errors map to 500.
func StatusOf(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrInvalidKey):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrLoginRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrKeyService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string
	ResourceType string
	ResourceID   string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
