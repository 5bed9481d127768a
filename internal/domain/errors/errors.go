package errors

import (
	"errors"
	"fmt"
)

var (
	// Generic errors.
	ErrInternal       = errors.New("internal server error")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")

	// Authentication errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrTokenBlacklisted   = errors.New("token is blacklisted")
	ErrRefreshRejected    = errors.New("refresh token rejected")

	// Session errors.
	ErrSessionNotFound = errors.New("session not found")

	// OAuth errors.
	ErrOAuthExchangeFailed = errors.New("oauth code exchange failed")
	ErrOAuthProfileFailed  = errors.New("oauth profile fetch failed")
)

// AppError carries an HTTP status and a stable API code alongside the
// underlying error. Handlers use it to shape responses without leaking
// store or provider detail.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{Err: err, Message: message, StatusCode: statusCode, Code: code}
}

// IsUnauthorized reports whether err should surface as a 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrTokenBlacklisted)
}

// IsConflict reports whether err should surface as a 400/409 conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsRefreshRejected reports whether err is any of the deliberately
// undifferentiated refresh failures (expired, forged, superseded, malformed).
func IsRefreshRejected(err error) bool {
	return errors.Is(err, ErrRefreshRejected)
}

// IsNotFound reports whether err is an absence, not a failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrSessionNotFound)
}
