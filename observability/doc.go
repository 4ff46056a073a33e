// Package observability wires OpenTelemetry tracing and metrics for a
// querykit session.
//
//	shutdown, err := observability.Setup(ctx, cfg)
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "users.list")
//	defer span.End()
//
// When telemetry is disabled the global no-op providers stay in place, so
// instruments created through Meter and Tracer cost nothing.
package observability
