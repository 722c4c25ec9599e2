package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode identifies an error class.
type ErrorCode string

const (
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotReady ErrorCode = "NOT_READY"

	// Not found
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeGiveawayNotFound ErrorCode = "GIVEAWAY_NOT_FOUND"
	ErrCodeMessageNotFound  ErrorCode = "MESSAGE_NOT_FOUND"

	// Validation
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// Storage
	ErrCodeStorage  ErrorCode = "STORAGE_ERROR"
	ErrCodeConflict ErrorCode = "CONFLICT"

	// Messaging
	ErrCodeMessaging ErrorCode = "MESSAGING_ERROR"

	// Admin API
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimit    ErrorCode = "RATE_LIMITED"
)

// AppError is a typed application error.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether the error refers to an absent giveaway, entry or message.
func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound ||
		e.Code == ErrCodeGiveawayNotFound ||
		e.Code == ErrCodeMessageNotFound
}

// IsValidation reports malformed input as well as forbidden state transitions.
func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation || e.Code == ErrCodeInvalidState
}

func (e *AppError) IsStorage() bool {
	return e.Code == ErrCodeStorage || e.Code == ErrCodeConflict
}

func (e *AppError) IsMessaging() bool {
	return e.Code == ErrCodeMessaging
}

func (e *AppError) IsNotReady() bool {
	return e.Code == ErrCodeNotReady
}

// WithDetail attaches a detail value to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     err,
	}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func NewNotReadyError(component string) *AppError {
	return New(ErrCodeNotReady, fmt.Sprintf("%s is not ready", component))
}

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("invalid %s: %s", field, reason)).
		WithDetail("field", field)
}

func NewInvalidStateError(giveawayID, reason string) *AppError {
	return New(ErrCodeInvalidState, fmt.Sprintf("giveaway %s %s", giveawayID, reason)).
		WithDetail("giveaway_id", giveawayID)
}

func NewNotFoundError(resource, id string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

func NewGiveawayNotFoundError(giveawayID string) *AppError {
	return New(ErrCodeGiveawayNotFound, "giveaway not found").
		WithDetail("giveaway_id", giveawayID)
}

func NewMessageNotFoundError(giveawayID string) *AppError {
	return New(ErrCodeMessageNotFound, "announcement message not found").
		WithDetail("giveaway_id", giveawayID)
}

func NewStorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorage, "storage operation failed").
		WithDetail("operation", operation)
}

func NewConflictError(resource, reason string) *AppError {
	return New(ErrCodeConflict, fmt.Sprintf("%s conflict: %s", resource, reason)).
		WithDetail("resource", resource)
}

func NewMessagingError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeMessaging, "messaging operation failed").
		WithDetail("operation", operation)
}

func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, reason)
}

func NewRateLimitError(userID string) *AppError {
	return New(ErrCodeRateLimit, "too many requests").WithDetail("user_id", userID)
}

// As returns the first *AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first *AppError in err's chain, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.IsNotFound()
}

func IsValidation(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.IsValidation()
}

func IsStorage(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.IsStorage()
}

func IsMessaging(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.IsMessaging()
}

func IsNotReady(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.IsNotReady()
}

func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}
