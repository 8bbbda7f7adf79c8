//go:build !windows

package process_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	goerrors "github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/observability"
	"github.com/kbukum/execkit/process"
)

// syncBuffer guards a bytes.Buffer shared between a logger and a sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func jsonLogger(w io.Writer) *logger.Logger {
	return logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, "test", w)
}

func lastEntry(t *testing.T, logs string) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(logs), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", logs, err)
	}
	return entry
}

func TestRunnerConfig_ApplyDefaults(t *testing.T) {
	var cfg process.RunnerConfig
	cfg.ApplyDefaults()
	if cfg.Name != "process" {
		t.Errorf("expected name 'process', got %q", cfg.Name)
	}
	if cfg.GracePeriod != process.DefaultGracePeriod || cfg.KillWait != process.DefaultKillWait {
		t.Errorf("unexpected grace/kill wait %v/%v", cfg.GracePeriod, cfg.KillWait)
	}
	if cfg.CaptureMode != process.CaptureTail {
		t.Errorf("expected tail capture, got %q", cfg.CaptureMode)
	}
	if cfg.LogOutputLimit != process.DefaultLogOutputLimit {
		t.Errorf("expected default log output limit, got %d", cfg.LogOutputLimit)
	}
}

func TestRunner_OptionsMerge(t *testing.T) {
	r := process.NewRunner(process.RunnerConfig{
		Timeout:         time.Minute,
		MaxCaptureBytes: 128,
		SingleProcess:   true,
	}, process.WithLogger(logger.NewNop()))

	opts := r.Options(process.Options{Timeout: time.Second})
	if opts.Timeout != time.Second {
		t.Errorf("explicit timeout must win, got %v", opts.Timeout)
	}
	if opts.MaxCaptureBytes != 128 {
		t.Errorf("expected config capture limit, got %d", opts.MaxCaptureBytes)
	}
	if !opts.SingleProcess {
		t.Error("expected SingleProcess from config")
	}
	if got := r.Options(process.Options{}).Timeout; got != time.Minute {
		t.Errorf("expected config timeout for a zero value, got %v", got)
	}
	if got := r.Options(process.Options{NoTimeout: true}); got.Timeout != 0 || !got.NoTimeout {
		t.Errorf("NoTimeout must not inherit the config timeout, got %v", got.Timeout)
	}
	if r.Name() != "process" || !r.IsAvailable(context.Background()) {
		t.Errorf("unexpected name/availability %q", r.Name())
	}
}

func TestRunner_LogsOnlyAfterExecuteReturns(t *testing.T) {
	var logs syncBuffer
	r := process.NewRunner(process.RunnerConfig{}, process.WithLogger(jsonLogger(&logs)))

	var loggedDuringRun bool
	sink := process.SinkFunc(func(p []byte) (int, error) {
		if strings.Contains(logs.String(), "executed command") {
			loggedDuringRun = true
		}
		return len(p), nil
	})

	res, err := r.Run(context.Background(), process.NewCommand(sh("echo a; sleep 0.05; echo b")...), process.Options{
		Sinks:   []io.Writer{sink},
		Capture: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loggedDuringRun {
		t.Fatal("completion record was logged while output was still streaming")
	}

	entry := lastEntry(t, logs.String())
	if entry["message"] != "executed command" {
		t.Fatalf("expected completion record, got %v", entry)
	}
	if entry[logger.FieldExitCode] != float64(0) || entry[logger.FieldTimedOut] != false {
		t.Errorf("unexpected exit fields %v", entry)
	}
	if entry[logger.FieldOutput] != string(res.Output) {
		t.Errorf("expected output %q in log, got %v", res.Output, entry[logger.FieldOutput])
	}
	if id, _ := entry[logger.FieldExecID].(string); len(id) != 36 {
		t.Errorf("expected a uuid exec id, got %v", entry[logger.FieldExecID])
	}
}

func TestRunner_RecordsMetricsAndSpans(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()
	metrics, err := observability.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	r := process.NewRunner(process.RunnerConfig{Timeout: 100 * time.Millisecond},
		process.WithLogger(logger.NewNop()),
		process.WithMetrics(metrics),
		process.WithTracing(true),
	)
	res, err := r.Run(context.Background(), process.NewCommand("sleep", "10"), process.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.TimedOut {
		t.Fatal("expected config timeout to apply")
	}

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != observability.SpanExecute {
		t.Fatalf("expected one %s span, got %d", observability.SpanExecute, len(spans))
	}
	var status string
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == observability.AttrStatus {
			status = kv.Value.AsString()
		}
	}
	if status != process.StatusTimeout {
		t.Errorf("expected span status %q, got %q", process.StatusTimeout, status)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "exec.timeouts" {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected exec.timeouts to be recorded")
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		res  *process.Result
		err  error
		want string
	}{
		{"ok", &process.Result{}, nil, process.StatusOK},
		{"non zero", &process.Result{ExitCode: 2}, nil, process.StatusNonZero},
		{"timeout", &process.Result{ExitCode: -15, TimedOut: true}, nil, process.StatusTimeout},
		{"spawn", nil, goerrors.SpawnFailed("x", errors.New("no such file")), process.StatusSpawnFailed},
		{"canceled", &process.Result{ExitCode: -15}, goerrors.Canceled("x", context.Canceled), process.StatusCanceled},
		{"unkillable", &process.Result{ExitCode: -1}, goerrors.Unkillable(1, nil), process.StatusUnkillable},
		{"invalid", nil, goerrors.InvalidInput("binary", "required"), process.StatusError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := process.Status(tc.res, tc.err); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestLogResult_TruncatesOutput(t *testing.T) {
	var buf bytes.Buffer
	res := &process.Result{Command: "seq 100", Output: []byte("0123456789"), Duration: time.Second}
	process.LogResult(jsonLogger(&buf), res, nil, 4)

	entry := lastEntry(t, buf.String())
	if entry[logger.FieldOutput] != "6789" {
		t.Errorf("expected tail of output, got %v", entry[logger.FieldOutput])
	}
	if entry[logger.FieldTruncated] != true {
		t.Errorf("expected truncated flag, got %v", entry[logger.FieldTruncated])
	}
	if entry[logger.FieldDuration] != float64(1000) {
		t.Errorf("expected duration_ms=1000, got %v", entry[logger.FieldDuration])
	}
}

func TestLogResult_SinkErrorsCount(t *testing.T) {
	var buf bytes.Buffer
	res := &process.Result{
		Command:    "echo hi",
		SinkErrors: []error{goerrors.SinkFailed(0, nil), goerrors.SinkFailed(2, nil)},
	}
	process.LogResult(jsonLogger(&buf), res, nil, 0)

	entry := lastEntry(t, buf.String())
	if entry[logger.FieldSinkErrs] != float64(2) {
		t.Errorf("expected sink_errors=2, got %v", entry[logger.FieldSinkErrs])
	}
	if _, ok := entry[logger.FieldSink]; ok {
		t.Errorf("sink is reserved for a sink index, got %v", entry[logger.FieldSink])
	}
}

func TestLogResult_ErrorLevels(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf)

	process.LogResult(log, nil, goerrors.SpawnFailed("nope", errors.New("not found")), 0)
	if entry := lastEntry(t, buf.String()); entry["level"] != "error" {
		t.Errorf("expected error level for spawn failure, got %v", entry["level"])
	}

	buf.Reset()
	process.LogResult(log, &process.Result{ExitCode: 3}, errors.New("exit 3"), 0)
	if entry := lastEntry(t, buf.String()); entry["level"] != "warn" {
		t.Errorf("expected warn level for failed execution, got %v", entry["level"])
	}
}
