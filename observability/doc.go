// Package observability provides OpenTelemetry tracing and metrics for
// process executions.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.TracerConfig{ServiceName: "execkit"})
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	metrics, err := observability.NewMetrics(observability.Meter())
//	metrics.RecordExecution(ctx, observability.Execution{Binary: "make", Status: "ok"})
//
// Setup wires both from a Config and returns one shutdown function.
package observability
