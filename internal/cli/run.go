package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	goerrors "github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/process"
)

// Exit codes for outcomes that have no child exit status.
const (
	exitUsage       = 2
	exitUnkillable  = 125
	exitTimeout     = 124
	exitNotFound    = 127
	exitCanceled    = 130
	exitSignalShift = 128
)

type runFlags struct {
	timeout       time.Duration
	grace         time.Duration
	killWait      time.Duration
	capture       bool
	maxCapture    int
	captureMode   string
	expectZero    bool
	quiet         bool
	outputFiles   []string
	appendOutput  bool
	singleProcess bool
	dir           string
	env           []string
	stdin         bool
}

func newRunCmd(ctx *context) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [flags] -- COMMAND [ARGS...]",
		Short: "Run a command to completion",
		Long: `Run a command with its combined stdout and stderr streamed to the
terminal and any --output-file targets.

On --timeout the whole process group receives SIGTERM, then SIGKILL after
--grace. execkit exits with the command's exit code, 124 on timeout, 127
when the command cannot be started and 128+N when it died from signal N.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, ctx, f, args)
		},
	}

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.DurationVarP(&f.timeout, "timeout", "t", 0, "Terminate the command after this long (unset uses the configured default, 0 disables it)")
	flags.DurationVar(&f.grace, "grace", 0, "Time between SIGTERM and SIGKILL")
	flags.DurationVar(&f.killWait, "kill-wait", 0, "How long SIGKILL is retried before giving up")
	flags.BoolVar(&f.capture, "capture", false, "Capture output and print it after the command finishes")
	flags.IntVar(&f.maxCapture, "max-capture", 0, "Maximum captured bytes (0 is unbounded)")
	flags.StringVar(&f.captureMode, "capture-mode", "", "Which bytes to keep when capture overflows: tail or head")
	flags.BoolVar(&f.expectZero, "expect-zero", false, "Treat a non-zero exit code as an error")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "Do not stream output to stdout")
	flags.StringArrayVarP(&f.outputFiles, "output-file", "o", nil, "Also write output to this file (repeatable)")
	flags.BoolVar(&f.appendOutput, "append", false, "Append to --output-file instead of truncating it")
	flags.BoolVar(&f.singleProcess, "single-process", false, "Signal only the direct child, not its process group")
	flags.StringVarP(&f.dir, "dir", "C", "", "Working directory for the command")
	flags.StringArrayVarP(&f.env, "env", "e", nil, "Extra KEY=VALUE environment entry (repeatable)")
	flags.BoolVar(&f.stdin, "stdin", false, "Forward this process's stdin to the command")

	return cmd
}

func runCommand(cmd *cobra.Command, ctx *context, f runFlags, args []string) error {
	command := process.NewCommand(args...)
	command.Dir = f.dir
	command.Env = f.env
	if f.stdin {
		command.Stdin = cmd.InOrStdin()
	}

	var sinks []io.Writer
	if !f.quiet {
		sinks = append(sinks, cmd.OutOrStdout())
	}
	files, err := openOutputFiles(f.outputFiles, f.appendOutput)
	if err != nil {
		return &codeError{code: exitUsage, err: err}
	}
	defer func() {
		for _, file := range files {
			_ = file.Close()
		}
	}()
	for _, file := range files {
		sinks = append(sinks, file)
	}

	runner := process.NewRunner(ctx.cfg.Process,
		process.WithLogger(ctx.log.WithComponent("run")),
		process.WithMetrics(ctx.metrics),
		process.WithTracing(ctx.cfg.Observability.Tracing),
	)
	res, err := runner.Run(cmd.Context(), command, process.Options{
		Timeout:         f.timeout,
		NoTimeout:       cmd.Flags().Changed("timeout") && f.timeout == 0,
		GracePeriod:     f.grace,
		KillWait:        f.killWait,
		Sinks:           sinks,
		Capture:         f.capture,
		MaxCaptureBytes: f.maxCapture,
		CaptureMode:     process.CaptureMode(f.captureMode),
		ExpectZeroExit:  f.expectZero,
		SingleProcess:   f.singleProcess,
	})

	if f.capture && res != nil && len(res.Output) > 0 {
		if _, werr := cmd.OutOrStdout().Write(res.Output); werr != nil {
			ctx.log.Warn("writing captured output failed", logger.Fields(logger.FieldError, werr.Error()))
		}
	}

	code := exitCodeFor(res, err)
	if code == 0 {
		return nil
	}
	if _, isExit := process.AsExitError(err); isExit || err == nil {
		// The completion record already describes a plain non-zero exit.
		return &codeError{code: code}
	}
	return &codeError{code: code, err: err}
}

func openOutputFiles(paths []string, appendMode bool) ([]*os.File, error) {
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	files := make([]*os.File, 0, len(paths))
	for _, path := range paths {
		file, err := os.OpenFile(path, flag, 0o644)
		if err != nil {
			for _, opened := range files {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("open output file: %w", err)
		}
		files = append(files, file)
	}
	return files, nil
}

// exitCodeFor maps an execution outcome to execkit's own exit code.
func exitCodeFor(res *process.Result, err error) int {
	switch {
	case goerrors.HasCode(err, goerrors.ErrCodeInvalidInput):
		return exitUsage
	case goerrors.HasCode(err, goerrors.ErrCodeSpawnFailed):
		return exitNotFound
	case goerrors.HasCode(err, goerrors.ErrCodeUnkillable):
		return exitUnkillable
	case goerrors.HasCode(err, goerrors.ErrCodeCanceled):
		return exitCanceled
	case res == nil:
		if err != nil {
			return 1
		}
		return 0
	case res.TimedOut:
		return exitTimeout
	case res.ExitCode < 0:
		return exitSignalShift - res.ExitCode
	}
	return res.ExitCode
}
