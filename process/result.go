package process

import "time"

// Result holds the output and status of a completed subprocess.
type Result struct {
	// Command is the rendered command line.
	Command string
	// PID is the process id of the direct child.
	PID int
	// ExitCode is the process exit code. A process killed by signal N
	// reports -N, so a timed-out process is always non-zero.
	ExitCode int
	// Output is the captured combined stdout/stderr. Empty unless
	// Options.Capture was set.
	Output []byte
	// OutputBytes is the total number of bytes read from the process,
	// whether or not they were captured.
	OutputBytes int64
	// Truncated reports that captured output exceeded MaxCaptureBytes.
	Truncated bool
	// TimedOut reports that the deadline fired and the process tree was
	// terminated.
	TimedOut bool
	// Duration is how long the process ran.
	Duration time.Duration
	// SinkErrors holds one error per sink that stopped accepting output.
	SinkErrors []error
}

// Success reports a zero exit code without a timeout.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0 && !r.TimedOut
}
