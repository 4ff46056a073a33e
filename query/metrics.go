package query

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricHits          = "query.cache.hits"
	MetricMisses        = "query.cache.misses"
	MetricFetches       = "query.fetches"
	MetricRetries       = "query.retries"
	MetricEvictions     = "query.cache.evictions"
	MetricInvalidations = "query.cache.invalidations"
	MetricMutations     = "query.mutations"
)

type metrics struct {
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	fetches       metric.Int64Counter
	retries       metric.Int64Counter
	evictions     metric.Int64Counter
	invalidations metric.Int64Counter
	mutations     metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	counters := []struct {
		name string
		desc string
		dst  *metric.Int64Counter
	}{
		{MetricHits, "Reads served from cache, fresh or stale", &m.hits},
		{MetricMisses, "Reads that waited for a fetch", &m.misses},
		{MetricFetches, "Fetch attempts", &m.fetches},
		{MetricRetries, "Fetch retries after a transient failure", &m.retries},
		{MetricEvictions, "Entries removed by garbage collection", &m.evictions},
		{MetricInvalidations, "Entries marked stale by invalidation", &m.invalidations},
		{MetricMutations, "Settled mutations by outcome", &m.mutations},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

func (m *metrics) hit(ctx context.Context, stale bool) {
	if m == nil {
		return
	}
	m.hits.Add(ctx, 1, metric.WithAttributes(attribute.Bool("stale", stale)))
}

func (m *metrics) miss(ctx context.Context) {
	if m == nil {
		return
	}
	m.misses.Add(ctx, 1)
}

func (m *metrics) fetch(ctx context.Context) {
	if m == nil {
		return
	}
	m.fetches.Add(ctx, 1)
}

func (m *metrics) retry(ctx context.Context) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1)
}

func (m *metrics) evict(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.evictions.Add(ctx, int64(n))
}

func (m *metrics) invalidate(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.invalidations.Add(ctx, int64(n))
}

func (m *metrics) mutation(ctx context.Context, name string, ok bool) {
	if m == nil {
		return
	}
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mutation", name),
		attribute.String("outcome", outcome),
	))
}
