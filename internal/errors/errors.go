package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrNotFound     ErrorType = "NOT_FOUND"
	ErrInvalidInput ErrorType = "INVALID_INPUT"
	ErrInternal     ErrorType = "INTERNAL"
	ErrUnauthorized ErrorType = "UNAUTHORIZED"
	ErrOffline      ErrorType = "OFFLINE"
	ErrTransient    ErrorType = "TRANSIENT"
	ErrTerminal     ErrorType = "TERMINAL"
	ErrStorage      ErrorType = "STORAGE"
)

// Messages surfaced verbatim in sync summaries
const (
	OfflineMessage        = "Device is offline"
	SyncInProgressMessage = "Sync already in progress"
)

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// TypeOf returns the type of the first AppError in err's chain, or "" if none
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

func isType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	if isType(err, ErrNotFound) {
		return true
	}
	var nf *NotFoundError
	return stderrors.As(err, &nf)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return isType(err, ErrInvalidInput)
}

// IsValidationError is an alias for IsInvalidInput
func IsValidationError(err error) bool {
	return IsInvalidInput(err)
}

// IsOffline checks if the error reports a disconnected device
func IsOffline(err error) bool {
	return isType(err, ErrOffline)
}

// IsTransient checks if the error is worth retrying later
func IsTransient(err error) bool {
	return isType(err, ErrTransient)
}

// IsTerminal checks if the error will never succeed on retry
func IsTerminal(err error) bool {
	return isType(err, ErrTerminal)
}

// IsUnauthorized checks if the error is a rejected-credentials error
func IsUnauthorized(err error) bool {
	return isType(err, ErrUnauthorized)
}

// IsStorage checks if the error came from the durable store
func IsStorage(err error) bool {
	return isType(err, ErrStorage)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return New(ErrNotFound, message, err)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return New(ErrInvalidInput, message, err)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, err error) *AppError {
	return New(ErrUnauthorized, message, err)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return New(ErrInternal, message, err)
}

// NewOfflineError creates the error returned when the device has no connectivity
func NewOfflineError() *AppError {
	return New(ErrOffline, OfflineMessage, nil)
}

// NewTransientError wraps an adapter failure that may succeed on retry
// (network failure, timeout, 5xx, rate limiting)
func NewTransientError(message string, cause error) *AppError {
	return New(ErrTransient, message, cause)
}

// NewTerminalError wraps an adapter failure that cannot succeed on retry
// (validation failure, 4xx)
func NewTerminalError(message string, cause error) *AppError {
	return New(ErrTerminal, message, cause)
}

// NewStorageError wraps a failure of the durable store
func NewStorageError(message string, cause error) *AppError {
	return New(ErrStorage, message, cause)
}

// SyncInProgressError is returned when an operation is rejected because
// another one of the same kind is still running
type SyncInProgressError struct {
	Operation string
}

func (e *SyncInProgressError) Error() string {
	return fmt.Sprintf("sync already in progress: %s", e.Operation)
}

// NewSyncInProgressError creates a new SyncInProgressError
func NewSyncInProgressError(operation string) error {
	return &SyncInProgressError{
		Operation: operation,
	}
}

// IsSyncInProgress checks if the error is a SyncInProgressError
func IsSyncInProgress(err error) bool {
	var e *SyncInProgressError
	return stderrors.As(err, &e)
}

// NotFoundError represents a not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewResourceNotFoundError creates a new NotFoundError for a specific resource
func NewResourceNotFoundError(resource, id string) error {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}
