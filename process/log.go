package process

import (
	"github.com/kbukum/execkit/logger"
)

// LogResult logs one "executed command" record for a finished execution.
// Output beyond limit bytes is cut, keeping the tail; limit <= 0 omits it.
func LogResult(log *logger.Logger, res *Result, err error, limit int) {
	if res == nil {
		if err != nil {
			log.Error("command was not started", logger.Fields(logger.FieldError, err.Error()))
		}
		return
	}

	fields := logger.MergeWithDuration(logger.Fields(
		logger.FieldCommand, res.Command,
		logger.FieldPID, res.PID,
		logger.FieldExitCode, res.ExitCode,
		logger.FieldTimedOut, res.TimedOut,
		logger.FieldStatus, Status(res, err),
	), res.Duration)

	if limit > 0 && len(res.Output) > 0 {
		out := res.Output
		if len(out) > limit {
			out = out[len(out)-limit:]
			fields[logger.FieldTruncated] = true
		} else if res.Truncated {
			fields[logger.FieldTruncated] = true
		}
		fields[logger.FieldOutput] = string(out)
	}
	if len(res.SinkErrors) > 0 {
		fields[logger.FieldSinkErrs] = len(res.SinkErrors)
	}

	switch {
	case err != nil:
		fields[logger.FieldError] = err.Error()
		log.Warn("executed command", fields)
	default:
		log.Info("executed command", fields)
	}
}
