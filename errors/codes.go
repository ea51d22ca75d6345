package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors
const (
	// ErrCodeNotRegistered indicates no backend factory exists for a requested kind.
	ErrCodeNotRegistered ErrorCode = "NOT_REGISTERED"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Lifecycle errors
const (
	// ErrCodeInvalidState indicates the component cannot serve the call in its current state.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	// ErrCodeDisposed indicates the component was already closed.
	ErrCodeDisposed ErrorCode = "DISPOSED"
	// ErrCodeRuntimeInit indicates the embedded interpreter failed to start.
	ErrCodeRuntimeInit ErrorCode = "RUNTIME_INIT_FAILED"
	// ErrCodeLoadFailed indicates a backend failed to load its models or resources.
	ErrCodeLoadFailed ErrorCode = "LOAD_FAILED"
)

// Execution errors
const (
	// ErrCodeOperationFailed indicates the active backend failed while serving a call.
	ErrCodeOperationFailed ErrorCode = "OPERATION_FAILED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeCanceled indicates the caller canceled the operation.
	ErrCodeCanceled ErrorCode = "CANCELED"
	// ErrCodeServiceUnavailable indicates a backend is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeExternalService indicates an error from an external process or server.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeExternalService:    true,
	ErrCodeLoadFailed:         true,
	ErrCodeRuntimeInit:        true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
