package errors

import (
	"net/http"
	"time"

	"bazaar/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// Access-credential errors. All of these are recoverable by refresh
	// or re-login and map to 401.
	ErrUnauthenticated = NewBaseError(
		http.StatusUnauthorized,
		"UNAUTHENTICATED",
		"Authentication required",
		"",
	)

	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"Incorrect email or password",
		"",
	)

	// Refresh-flow errors. These always result in full cookie clearing.
	ErrSessionNotFound = NewBaseError(
		http.StatusUnauthorized,
		"SESSION_NOT_FOUND",
		"Session no longer exists",
		"",
	)

	ErrSessionRevoked = NewBaseError(
		http.StatusUnauthorized,
		"SESSION_REVOKED",
		"Session has been revoked",
		"",
	)

	ErrSessionExpired = NewBaseError(
		http.StatusUnauthorized,
		"SESSION_EXPIRED",
		"Session has expired",
		"",
	)

	ErrRefreshReuseDetected = NewBaseError(
		http.StatusUnauthorized,
		"REFRESH_REUSE_DETECTED",
		"Refresh token reuse detected; session revoked",
		"",
	)

	// Policy errors: authenticated but blocked. Not recoverable by refresh.
	ErrAccountBanned = NewBaseError(
		http.StatusForbidden,
		"ACCOUNT_BANNED",
		"This account has been banned",
		"",
	)

	ErrReauthRequired = NewBaseError(
		http.StatusForbidden,
		"REAUTH_REQUIRED",
		"Please confirm your password to continue",
		"",
	)

	ErrForbidden = NewBaseError(
		http.StatusForbidden,
		"FORBIDDEN",
		"Access denied",
		"",
	)

	// User errors
	ErrUserNotFound = NewBaseError(
		http.StatusNotFound,
		"USER_NOT_FOUND",
		"User not found",
		"",
	)

	ErrUserAlreadyExists = NewBaseError(
		http.StatusConflict,
		"USER_ALREADY_EXISTS",
		"An account with this email or username already exists",
		"",
	)

	ErrPasswordStrength = NewBaseError(
		http.StatusBadRequest,
		"PASSWORD_STRENGTH",
		"Password does not meet the security requirements",
		"",
	)

	// External-identity errors, surfaced to the browser as redirect query
	// codes, never as raw exceptions.
	ErrOAuthStateNotFound = NewBaseError(
		http.StatusBadRequest,
		"OAUTH_STATE_NOT_FOUND",
		"Unknown sign-in attempt",
		"",
	)

	ErrOAuthStateExpired = NewBaseError(
		http.StatusBadRequest,
		"OAUTH_STATE_EXPIRED",
		"Sign-in attempt expired, please start again",
		"",
	)

	ErrOAuthStateConsumed = NewBaseError(
		http.StatusBadRequest,
		"OAUTH_STATE_CONSUMED",
		"Sign-in attempt already used",
		"",
	)

	ErrOAuthEmailExists = NewBaseError(
		http.StatusConflict,
		"OAUTH_EMAIL_EXISTS",
		"An account with this email already exists; sign in and link it explicitly",
		"",
	)

	ErrOAuthPendingNotFound = NewBaseError(
		http.StatusNotFound,
		"OAUTH_PENDING_NOT_FOUND",
		"No pending sign-up for this attempt",
		"",
	)

	ErrOAuthProviderError = NewBaseError(
		http.StatusBadGateway,
		"OAUTH_PROVIDER_ERROR",
		"The identity provider rejected the sign-in",
		"",
	)

	ErrOAuthIdentityConflict = NewBaseError(
		http.StatusConflict,
		"OAUTH_IDENTITY_CONFLICT",
		"This provider account is already linked",
		"",
	)

	// Secret-at-rest errors. Fatal for the secret in question; decryption
	// never substitutes a default.
	ErrSecretFormatInvalid = NewBaseError(
		http.StatusInternalServerError,
		"SECRET_FORMAT_INVALID",
		"Stored secret is malformed",
		"",
	)

	ErrDecryptionFailed = NewBaseError(
		http.StatusInternalServerError,
		"DECRYPTION_FAILED",
		"Stored secret could not be decrypted",
		"",
	)

	// Validation-related errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Input validation failed",
		"",
	)

	// General errors
	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"Resource not found",
		"",
	)

	ErrConflict = NewBaseError(
		http.StatusConflict,
		"CONFLICT",
		"Resource conflict",
		"",
	)

	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)
)

// SuspensionError is the 403 returned for a suspended account. It carries
// the suspension deadline so clients can show when access resumes.
type SuspensionError struct {
	until *time.Time
}

// NewSuspensionError creates a suspension error; until may be nil for an
// indefinite suspension.
func NewSuspensionError(until *time.Time) *SuspensionError {
	return &SuspensionError{until: until}
}

// Error implements the error interface
func (e *SuspensionError) Error() string {
	return "account is suspended"
}

// HTTPCode returns the HTTP status code
func (e *SuspensionError) HTTPCode() int {
	return http.StatusForbidden
}

// ErrorCode returns the business error code
func (e *SuspensionError) ErrorCode() string {
	return "ACCOUNT_SUSPENDED"
}

// Message returns the user-friendly error message
func (e *SuspensionError) Message() string {
	return "This account is suspended"
}

// Details returns detailed error information
func (e *SuspensionError) Details() string {
	return ""
}

// SuspendedUntil returns the suspension deadline as epoch milliseconds,
// or 0 when the suspension is indefinite.
func (e *SuspensionError) SuspendedUntil() int64 {
	if e.until == nil {
		return 0
	}

	return e.until.UnixMilli()
}

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "Database execution failed"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}
