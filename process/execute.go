package process

import (
	"context"
	"errors"
	"os"
	"time"

	goerrors "github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/validation"
)

// Execute runs cmd to completion and returns its result.
//
// Output is drained concurrently into opts.Sinks (and the capture buffer)
// while the process runs. When opts.Timeout elapses, or ctx is done, the
// process tree receives SIGTERM, then SIGKILL after opts.GracePeriod.
// Execute does not return while any process of the tree is still running,
// and no sink is written to after it returns.
//
// A timeout is not an error: the result has TimedOut set. Errors are
// INVALID_INPUT and SPAWN_FAILED (nil result), CANCELED and
// PROCESS_UNKILLABLE (partial result), and *ExitError when
// opts.ExpectZeroExit is set and the exit code is non-zero.
func Execute(ctx context.Context, cmd Command, opts Options) (*Result, error) {
	if err := validation.Validate(cmd); err != nil {
		return nil, err
	}
	if err := validation.Validate(opts); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, goerrors.Canceled(cmd.Binary, err)
	}
	opts = opts.withDefaults()
	log := opts.Logger

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, goerrors.Internal(err)
	}

	start := time.Now()
	h, err := Start(cmd, pw, !opts.SingleProcess)
	// The child holds its own copy of the write end.
	_ = pw.Close()
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	h.log = log
	log.Debug("process started", logger.Fields(
		logger.FieldCommand, cmd.String(),
		logger.FieldPID, h.PID(),
		logger.FieldPGID, h.PGID(),
	))

	d := attachDrain(pr, drainConfig{
		sinks:    opts.Sinks,
		capture:  opts.Capture,
		maxBytes: opts.MaxCaptureBytes,
		mode:     opts.CaptureMode,
		log:      log,
	})
	defer d.close()

	var sup *supervisor
	if opts.Timeout > 0 || ctx.Done() != nil {
		sup = arm(ctx, h, opts.Timeout, opts.GracePeriod, opts.KillWait)
	}

	var termErr error
	escalated := false
	if sup != nil {
		select {
		case <-h.Done():
		case <-sup.done:
		}
		sup.disarm()
		termErr = sup.escalationErr
		escalated = sup.fired()
	}
	// A fired escalation has already waited for the whole group.
	if !escalated {
		termErr = h.reapGroup(opts.GracePeriod, opts.KillWait)
	}

	if !d.wait(opts.DrainTimeout) {
		log.Debug("output stream still open after process exit, closed it", logger.Fields(logger.FieldPID, h.PID()))
	}
	if d.readErr != nil {
		log.Warn("reading process output failed", logger.Fields(logger.FieldPID, h.PID(), logger.FieldError, d.readErr.Error()))
	}

	code := -1
	if _, exited := h.Poll(); exited {
		var waitErr error
		code, waitErr = h.Reap()
		if waitErr != nil {
			log.Debug("wait returned error", logger.Fields(logger.FieldPID, h.PID(), logger.FieldError, waitErr.Error()))
		}
	}

	output, truncated := d.output()
	res := &Result{
		Command:     cmd.String(),
		PID:         h.PID(),
		ExitCode:    code,
		Output:      output,
		OutputBytes: d.total,
		Truncated:   truncated,
		Duration:    time.Since(start),
		SinkErrors:  d.sinkErrs,
	}
	if sup != nil && sup.fired() {
		res.TimedOut = errors.Is(sup.cause, context.DeadlineExceeded)
	}

	switch {
	case termErr != nil:
		return res, termErr
	case sup != nil && sup.fired() && !res.TimedOut:
		return res, goerrors.Canceled(cmd.Binary, sup.cause)
	case opts.ExpectZeroExit && res.ExitCode != 0:
		return res, newExitError(cmd.Binary, res)
	}
	return res, nil
}
