package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Input errors
const (
	// ErrCodeInvalidInput indicates the command or its options are invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Execution errors
const (
	// ErrCodeSpawnFailed indicates the executable could not be launched.
	ErrCodeSpawnFailed ErrorCode = "SPAWN_FAILED"
	// ErrCodeNonZeroExit indicates the process exited with a non-zero code
	// while a zero exit was required.
	ErrCodeNonZeroExit ErrorCode = "NON_ZERO_EXIT"
	// ErrCodeTimeout indicates the process outlived its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeCanceled indicates the caller canceled the execution.
	ErrCodeCanceled ErrorCode = "CANCELED"
	// ErrCodeUnkillable indicates the process tree survived forced termination.
	ErrCodeUnkillable ErrorCode = "PROCESS_UNKILLABLE"
	// ErrCodeSinkFailed indicates an output sink rejected a chunk.
	ErrCodeSinkFailed ErrorCode = "SINK_FAILED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:     true,
	ErrCodeNonZeroExit: true,
	ErrCodeInternal:    false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
