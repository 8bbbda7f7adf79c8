package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
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

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

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
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// InvalidInput creates an AppError for a rejected command or option.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Retryable: false, Details: details,
	}
}

// Validation creates an AppError for struct validation failures.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message, Retryable: false}
}

// SpawnFailed creates an AppError for an executable that could not be started.
func SpawnFailed(binary string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSpawnFailed, Message: fmt.Sprintf("Unable to start %s.", binary),
		Retryable: false, Details: map[string]any{"binary": binary}, Cause: cause,
	}
}

// NonZeroExit creates an AppError for a process that exited unsuccessfully.
func NonZeroExit(binary string, exitCode int) *AppError {
	return &AppError{
		Code: ErrCodeNonZeroExit, Message: fmt.Sprintf("%s exited with code %d.", binary, exitCode),
		Retryable: true, Details: map[string]any{"binary": binary, "exit_code": exitCode},
	}
}

// Timeout creates an AppError for a process that outlived its deadline.
func Timeout(binary string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s did not finish before its deadline.", binary),
		Retryable: true, Details: map[string]any{"binary": binary},
	}
}

// Canceled creates an AppError for an execution canceled by the caller.
func Canceled(binary string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCanceled, Message: fmt.Sprintf("Execution of %s was canceled.", binary),
		Retryable: false, Details: map[string]any{"binary": binary}, Cause: cause,
	}
}

// Unkillable creates an AppError for a process tree that survived SIGKILL.
func Unkillable(pid int, cause error) *AppError {
	return &AppError{
		Code: ErrCodeUnkillable, Message: fmt.Sprintf("Process %d is still running after forced termination.", pid),
		Retryable: false, Details: map[string]any{"pid": pid}, Cause: cause,
	}
}

// SinkFailed creates an AppError for an output sink that rejected data.
func SinkFailed(index int, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSinkFailed, Message: fmt.Sprintf("Output sink %d stopped accepting data.", index),
		Retryable: false, Details: map[string]any{"sink": index}, Cause: cause,
	}
}

// Internal creates an AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		Retryable: false, Cause: cause,
	}
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
