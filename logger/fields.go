package logger

import "time"

// Standard field key constants for structured logging.
const (
	FieldComponent = "component"
	FieldExecID    = "exec_id"
	FieldCommand   = "command"
	FieldDir       = "dir"
	FieldPID       = "pid"
	FieldPGID      = "pgid"
	FieldExitCode  = "exit_code"
	FieldTimedOut  = "timed_out"
	FieldTruncated = "truncated"
	FieldOutput    = "output"
	FieldSink      = "sink"
	FieldSinkErrs  = "sink_errors"
	FieldSignal    = "signal"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("done", logger.Fields("pid", 42, "exit_code", 0))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		"operation": op,
		FieldError:  err.Error(),
	}
}

// MergeWithDuration adds a duration field to an existing map.
func MergeWithDuration(fields map[string]interface{}, d time.Duration) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldDuration] = d.Milliseconds()
	return fields
}
