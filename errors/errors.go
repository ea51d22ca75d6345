package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Constructors ---

// NotRegistered reports a lookup for a backend kind that has no factory.
func NotRegistered(capability, kind string) *AppError {
	return &AppError{
		Code: ErrCodeNotRegistered, Message: fmt.Sprintf("No %s backend registered for kind %q.", capability, kind),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"capability": capability, "kind": kind},
	}
}

// InvalidState reports a call the component cannot serve right now.
func InvalidState(component, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidState, Message: reason,
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"component": component},
	}
}

// Disposed reports a call made after the component was closed.
func Disposed(component string) *AppError {
	return &AppError{
		Code: ErrCodeDisposed, Message: fmt.Sprintf("The %s has already been closed.", component),
		HTTPStatus: http.StatusGone,
		Details:    map[string]any{"component": component},
	}
}

// RuntimeInitFailed wraps a failure to bring up the embedded interpreter.
func RuntimeInitFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeRuntimeInit, Message: "Embedded runtime initialization failed.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true, Cause: cause,
	}
}

// LoadFailed wraps a backend model or resource load failure.
func LoadFailed(backend string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeLoadFailed, Message: fmt.Sprintf("The %s backend failed to load.", backend),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"backend": backend}, Cause: cause,
	}
}

// OperationFailed wraps an error returned by the active backend.
func OperationFailed(backend, operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeOperationFailed, Message: fmt.Sprintf("The %s backend failed to %s.", backend, operation),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"backend": backend, "operation": operation}, Cause: cause,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// ServiceUnavailable creates a new AppError for a backend that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// ExternalServiceError creates a new AppError for an error from an external process or server.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error. Please try again.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}

// Internal creates a new AppError for an unexpected error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// IsContext reports whether err stems from a cancelled or expired context.
func IsContext(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// FromContext converts a context error into a TIMEOUT or CANCELED AppError.
// Non-context errors are returned unchanged.
func FromContext(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return &AppError{
			Code: ErrCodeTimeout, Message: "The operation timed out.",
			HTTPStatus: http.StatusGatewayTimeout, Retryable: true, Cause: err,
		}
	case stderrors.Is(err, context.Canceled):
		return &AppError{
			Code: ErrCodeCanceled, Message: "The operation was canceled.",
			HTTPStatus: 499, Cause: err,
		}
	default:
		return err
	}
}
