package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeter installs a global meter provider exporting over OTLP HTTP.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// HTTPMetrics holds instruments for outbound HTTP requests.
type HTTPMetrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
}

// NewHTTPMetrics creates HTTP client instruments on meter.
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	total, err := meter.Int64Counter("http.client.requests",
		metric.WithDescription("Outbound HTTP requests by method and outcome"))
	if err != nil {
		return nil, fmt.Errorf("creating http.client.requests counter: %w", err)
	}
	duration, err := meter.Float64Histogram("http.client.duration",
		metric.WithDescription("Outbound HTTP request duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating http.client.duration histogram: %w", err)
	}
	active, err := meter.Int64UpDownCounter("http.client.active",
		metric.WithDescription("Outbound HTTP requests in flight"))
	if err != nil {
		return nil, fmt.Errorf("creating http.client.active counter: %w", err)
	}
	return &HTTPMetrics{requestTotal: total, requestDuration: duration, requestActive: active}, nil
}

// RecordStart marks a request in flight.
func (m *HTTPMetrics) RecordStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordEnd records a finished request. status is 0 when no response arrived;
// kind is the normalized error kind or empty on success.
func (m *HTTPMetrics) RecordEnd(ctx context.Context, method string, status int, kind string, d time.Duration) {
	if m == nil {
		return
	}
	outcome := kind
	if outcome == "" {
		outcome = "ok"
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", strconv.Itoa(status)),
		attribute.String("outcome", outcome),
	))
	m.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
	))
}
