package process

import (
	"io"
	"time"

	"github.com/kbukum/execkit/logger"
)

// CaptureMode selects which bytes survive when captured output exceeds
// Options.MaxCaptureBytes.
type CaptureMode string

const (
	// CaptureTail keeps the most recent bytes.
	CaptureTail CaptureMode = "tail"
	// CaptureHead keeps the earliest bytes and stops accumulating.
	CaptureHead CaptureMode = "head"
)

// Defaults applied by Execute when the corresponding option is zero.
const (
	DefaultGracePeriod  = 5 * time.Second
	DefaultKillWait     = 5 * time.Second
	DefaultDrainTimeout = 2 * time.Second
)

// Options controls a single execution.
type Options struct {
	// Timeout bounds the wall-clock runtime. Zero means no timeout.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
	// NoTimeout disables the deadline for this call, overriding Timeout and
	// any Runner default.
	NoTimeout bool `mapstructure:"no_timeout"`
	// GracePeriod is how long to wait after SIGTERM before SIGKILL.
	GracePeriod time.Duration `mapstructure:"grace_period" validate:"gte=0"`
	// KillWait is how long SIGKILL is retried before the process tree is
	// declared unkillable.
	KillWait time.Duration `mapstructure:"kill_wait" validate:"gte=0"`
	// DrainTimeout bounds how long output draining may continue once the
	// process tree is gone; the stream is closed after it.
	DrainTimeout time.Duration `mapstructure:"drain_timeout" validate:"gte=0"`

	// Sinks receive every output chunk, in order.
	Sinks []io.Writer `mapstructure:"-"`
	// Capture accumulates output into Result.Output.
	Capture bool `mapstructure:"capture"`
	// MaxCaptureBytes caps Result.Output. Zero means unbounded.
	MaxCaptureBytes int `mapstructure:"max_capture_bytes" validate:"gte=0"`
	// CaptureMode picks the truncation policy; CaptureTail when empty.
	CaptureMode CaptureMode `mapstructure:"capture_mode" validate:"omitempty,oneof=head tail"`

	// ExpectZeroExit turns a non-zero exit code into an *ExitError.
	ExpectZeroExit bool `mapstructure:"expect_zero_exit"`
	// SingleProcess disables process-group placement, so termination
	// reaches only the direct child.
	SingleProcess bool `mapstructure:"single_process"`

	// Logger receives sink failures and escalation steps.
	Logger *logger.Logger `mapstructure:"-"`
}

func (o Options) withDefaults() Options {
	if o.NoTimeout {
		o.Timeout = 0
	}
	if o.GracePeriod == 0 {
		o.GracePeriod = DefaultGracePeriod
	}
	if o.KillWait == 0 {
		o.KillWait = DefaultKillWait
	}
	if o.DrainTimeout == 0 {
		o.DrainTimeout = DefaultDrainTimeout
	}
	if o.CaptureMode == "" {
		o.CaptureMode = CaptureTail
	}
	if o.Logger == nil {
		o.Logger = logger.WithComponent("process")
	}
	return o
}
