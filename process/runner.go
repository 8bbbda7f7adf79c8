package process

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	goerrors "github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/observability"
)

// Execution statuses reported by Status.
const (
	StatusOK          = "ok"
	StatusNonZero     = "non_zero"
	StatusTimeout     = "timeout"
	StatusCanceled    = "canceled"
	StatusSpawnFailed = "spawn_failed"
	StatusUnkillable  = "unkillable"
	StatusError       = "error"
)

// DefaultLogOutputLimit caps the output included in the completion log.
const DefaultLogOutputLimit = 4096

// RunnerConfig holds config-driven defaults for a Runner.
type RunnerConfig struct {
	// Name identifies this runner instance.
	Name string `yaml:"name,omitempty" mapstructure:"name"`
	// Timeout is the default execution timeout. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout" validate:"gte=0"`
	// GracePeriod is the default grace period for SIGTERM to SIGKILL.
	GracePeriod time.Duration `yaml:"grace_period,omitempty" mapstructure:"grace_period" validate:"gte=0"`
	// KillWait bounds SIGKILL retries.
	KillWait time.Duration `yaml:"kill_wait,omitempty" mapstructure:"kill_wait" validate:"gte=0"`
	// DrainTimeout bounds output draining after exit.
	DrainTimeout time.Duration `yaml:"drain_timeout,omitempty" mapstructure:"drain_timeout" validate:"gte=0"`
	// MaxCaptureBytes caps captured output. Zero means unbounded.
	MaxCaptureBytes int `yaml:"max_capture_bytes,omitempty" mapstructure:"max_capture_bytes" validate:"gte=0"`
	// CaptureMode is "tail" or "head".
	CaptureMode CaptureMode `yaml:"capture_mode,omitempty" mapstructure:"capture_mode" validate:"omitempty,oneof=head tail"`
	// SingleProcess disables process-group placement.
	SingleProcess bool `yaml:"single_process,omitempty" mapstructure:"single_process"`
	// LogOutputLimit caps the bytes of output included in the completion log.
	LogOutputLimit int `yaml:"log_output_limit,omitempty" mapstructure:"log_output_limit" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *RunnerConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "process"
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	if c.KillWait == 0 {
		c.KillWait = DefaultKillWait
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	if c.CaptureMode == "" {
		c.CaptureMode = CaptureTail
	}
	if c.LogOutputLimit == 0 {
		c.LogOutputLimit = DefaultLogOutputLimit
	}
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used for completion records.
func WithLogger(log *logger.Logger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

// WithMetrics records every execution on m.
func WithMetrics(m *observability.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithTracing opens a span around every execution.
func WithTracing(enabled bool) RunnerOption {
	return func(r *Runner) { r.tracing = enabled }
}

// Runner executes commands with config-driven defaults and reports each
// finished execution through logs, metrics and spans.
type Runner struct {
	config  RunnerConfig
	log     *logger.Logger
	metrics *observability.Metrics
	tracing bool
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig, opts ...RunnerOption) *Runner {
	cfg.ApplyDefaults()
	r := &Runner{config: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.WithComponent(cfg.Name)
	}
	return r
}

// Name returns the runner name.
func (r *Runner) Name() string {
	return r.config.Name
}

// IsAvailable always returns true: the runner has no external dependency.
func (r *Runner) IsAvailable(_ context.Context) bool {
	return true
}

// Options returns the runner's defaults merged under opts. Fields set in
// opts win. A zero Timeout takes the configured one; set NoTimeout to run
// without a deadline.
func (r *Runner) Options(opts Options) Options {
	if opts.Timeout == 0 && !opts.NoTimeout {
		opts.Timeout = r.config.Timeout
	}
	if opts.GracePeriod == 0 {
		opts.GracePeriod = r.config.GracePeriod
	}
	if opts.KillWait == 0 {
		opts.KillWait = r.config.KillWait
	}
	if opts.DrainTimeout == 0 {
		opts.DrainTimeout = r.config.DrainTimeout
	}
	if opts.MaxCaptureBytes == 0 {
		opts.MaxCaptureBytes = r.config.MaxCaptureBytes
	}
	if opts.CaptureMode == "" {
		opts.CaptureMode = r.config.CaptureMode
	}
	if r.config.SingleProcess {
		opts.SingleProcess = true
	}
	return opts
}

// Run executes cmd through Execute. The completion record is logged and
// metrics are recorded only after Execute has returned.
func (r *Runner) Run(ctx context.Context, cmd Command, opts Options) (*Result, error) {
	execID := uuid.NewString()
	log := r.log.WithFields(logger.Fields(logger.FieldExecID, execID))
	opts = r.Options(opts)
	if opts.Logger == nil {
		opts.Logger = log
	}

	ctx, end := r.startSpan(ctx, execID, cmd)
	res, err := Execute(ctx, cmd, opts)
	status := Status(res, err)
	end(res, err, status)

	LogResult(log, res, err, r.config.LogOutputLimit)
	if r.metrics != nil {
		r.metrics.RecordExecution(ctx, execution(cmd, res, status))
	}
	return res, err
}

func (r *Runner) startSpan(ctx context.Context, execID string, cmd Command) (context.Context, func(*Result, error, string)) {
	if !r.tracing {
		return ctx, func(*Result, error, string) {}
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanExecute)
	span.SetAttributes(
		attribute.String(observability.AttrExecID, execID),
		attribute.String(observability.AttrCommand, cmd.String()),
	)
	return ctx, func(res *Result, err error, status string) {
		defer span.End()
		span.SetAttributes(attribute.String(observability.AttrStatus, status))
		if res != nil {
			span.SetAttributes(
				attribute.Int(observability.AttrPID, res.PID),
				attribute.Int(observability.AttrExitCode, res.ExitCode),
				attribute.Bool(observability.AttrTimedOut, res.TimedOut),
				attribute.Int64(observability.AttrOutputLen, res.OutputBytes),
			)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
}

func execution(cmd Command, res *Result, status string) observability.Execution {
	e := observability.Execution{Binary: cmd.Binary, Status: status}
	if res != nil {
		e.Duration = res.Duration
		e.OutputBytes = res.OutputBytes
		e.SinkErrors = len(res.SinkErrors)
		e.TimedOut = res.TimedOut
	}
	return e
}

// Status classifies a finished execution.
func Status(res *Result, err error) string {
	switch {
	case goerrors.HasCode(err, goerrors.ErrCodeUnkillable):
		return StatusUnkillable
	case goerrors.HasCode(err, goerrors.ErrCodeSpawnFailed):
		return StatusSpawnFailed
	case goerrors.HasCode(err, goerrors.ErrCodeCanceled):
		return StatusCanceled
	case res != nil && res.TimedOut:
		return StatusTimeout
	case res != nil && res.ExitCode != 0:
		return StatusNonZero
	case err != nil || res == nil:
		return StatusError
	}
	return StatusOK
}
