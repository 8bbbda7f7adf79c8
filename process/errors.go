package process

import (
	"errors"
	"fmt"

	goerrors "github.com/kbukum/execkit/errors"
)

// ExitError is returned when Options.ExpectZeroExit is set and the process
// exits with a non-zero code. It carries the full result and unwraps to a
// TIMEOUT AppError when the deadline killed the process, NON_ZERO_EXIT
// otherwise.
type ExitError struct {
	Result *Result
	app    *goerrors.AppError
}

func newExitError(binary string, res *Result) *ExitError {
	app := goerrors.NonZeroExit(binary, res.ExitCode)
	if res.TimedOut {
		app = goerrors.Timeout(binary).WithDetail("exit_code", res.ExitCode)
	}
	return &ExitError{Result: res, app: app}
}

func (e *ExitError) Error() string {
	if e.Result.TimedOut {
		return fmt.Sprintf("process: %s timed out (exit code %d)", e.Result.Command, e.Result.ExitCode)
	}
	return fmt.Sprintf("process: %s exited with code %d", e.Result.Command, e.Result.ExitCode)
}

// Unwrap exposes the underlying AppError.
func (e *ExitError) Unwrap() error { return e.app }

// AsExitError extracts an *ExitError from err's chain.
func AsExitError(err error) (*ExitError, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr, true
	}
	return nil, false
}
