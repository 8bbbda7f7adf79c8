package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/execkit/config"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/observability"
	"github.com/kbukum/execkit/version"
)

// NewRootCmd builds the execkit command tree.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	ctx := &context{}

	root := &cobra.Command{
		Use:   "execkit",
		Short: "Run commands with timeouts, process-group cleanup and streamed output",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&ctx.configFile, "config", "c", "", "Path to execkit.yml")
	root.PersistentFlags().StringVar(&ctx.envFile, "env-file", "", "Path to a .env file")
	root.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newVersionCmd())

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint and exits with the resulting code.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, cliCtx := newRootCommand()
	err := root.ExecuteContext(ctx)
	stop()
	cliCtx.close(stdcontext.Background())
	os.Exit(exitStatus(err))
}

// exitStatus maps a command error to a process exit code and reports it.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var ce *codeError
	if errors.As(err, &ce) {
		if ce.err != nil {
			fmt.Fprintln(os.Stderr, ce.err)
		}
		return ce.code
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}

// codeError carries the exit code a command wants execkit to exit with.
type codeError struct {
	code int
	err  error
}

func (e *codeError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *codeError) Unwrap() error { return e.err }

type context struct {
	configFile string
	envFile    string
	logLevel   string

	cfg      *config.Config
	log      *logger.Logger
	metrics  *observability.Metrics
	shutdown func(stdcontext.Context) error
}

func (c *context) setup(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}

	var opts []config.LoaderOption
	if c.configFile != "" {
		opts = append(opts, config.WithConfigFile(c.configFile))
	}
	if c.envFile != "" {
		opts = append(opts, config.WithEnvFile(c.envFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return &codeError{code: 2, err: err}
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
		if err := cfg.Logging.Validate(); err != nil {
			return &codeError{code: 2, err: err}
		}
	}
	c.cfg = cfg

	logger.Init(cfg.Logging, cfg.Name)
	c.log = logger.GetGlobalLogger()

	info := version.GetVersionInfo()
	shutdown, err := observability.Setup(cmd.Context(), cfg.Observability, cfg.Name, info.Short(), cfg.Environment)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	c.shutdown = shutdown
	if cfg.Observability.Metrics {
		metrics, err := observability.NewMetrics(observability.Meter())
		if err != nil {
			return fmt.Errorf("observability: %w", err)
		}
		c.metrics = metrics
	}
	return nil
}

// close flushes telemetry. It runs after the command whether or not it
// failed.
func (c *context) close(ctx stdcontext.Context) {
	if c.shutdown == nil {
		return
	}
	if err := c.shutdown(ctx); err != nil {
		c.log.Warn("observability shutdown failed", logger.ErrorFields("shutdown", err))
	}
	c.shutdown = nil
}
