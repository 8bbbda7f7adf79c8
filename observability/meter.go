package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/execkit/logger"
)

const meterName = "github.com/kbukum/execkit/process"

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Insecure       bool
	Interval       time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Debug("meter initialized", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns the execkit meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(meterName)
}

// Metrics holds the instruments recorded for every execution.
type Metrics struct {
	execTotal    metric.Int64Counter
	execDuration metric.Float64Histogram
	execTimeouts metric.Int64Counter
	outputBytes  metric.Int64Counter
	sinkErrors   metric.Int64Counter
}

// NewMetrics creates execution instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	execTotal, err := meter.Int64Counter("exec.total",
		metric.WithDescription("Total number of executions by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating exec.total counter: %w", err)
	}

	execDuration, err := meter.Float64Histogram("exec.duration",
		metric.WithDescription("Wall-clock duration of executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating exec.duration histogram: %w", err)
	}

	execTimeouts, err := meter.Int64Counter("exec.timeouts",
		metric.WithDescription("Executions terminated by their deadline"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating exec.timeouts counter: %w", err)
	}

	outputBytes, err := meter.Int64Counter("exec.output.bytes",
		metric.WithDescription("Bytes of combined output read from processes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating exec.output.bytes counter: %w", err)
	}

	sinkErrors, err := meter.Int64Counter("exec.sink.errors",
		metric.WithDescription("Output sinks that stopped accepting data"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating exec.sink.errors counter: %w", err)
	}

	return &Metrics{
		execTotal:    execTotal,
		execDuration: execDuration,
		execTimeouts: execTimeouts,
		outputBytes:  outputBytes,
		sinkErrors:   sinkErrors,
	}, nil
}

// Execution describes one finished execution for metric recording.
type Execution struct {
	Binary      string
	Status      string
	Duration    time.Duration
	OutputBytes int64
	SinkErrors  int
	TimedOut    bool
}

// RecordExecution records a finished execution.
func (m *Metrics) RecordExecution(ctx context.Context, e Execution) {
	binary := attribute.String("binary", e.Binary)
	m.execTotal.Add(ctx, 1, metric.WithAttributes(binary, attribute.String("status", e.Status)))
	m.execDuration.Record(ctx, e.Duration.Seconds(), metric.WithAttributes(binary))
	if e.OutputBytes > 0 {
		m.outputBytes.Add(ctx, e.OutputBytes, metric.WithAttributes(binary))
	}
	if e.SinkErrors > 0 {
		m.sinkErrors.Add(ctx, int64(e.SinkErrors), metric.WithAttributes(binary))
	}
	if e.TimedOut {
		m.execTimeouts.Add(ctx, 1, metric.WithAttributes(binary))
	}
}
