package query

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/querykit/component"
	"github.com/kbukum/querykit/logger"
	"github.com/kbukum/querykit/resilience"
)

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.StaleTime != 5*time.Minute || cfg.GCTime != 10*time.Minute || cfg.GCInterval != time.Minute {
		t.Errorf("unexpected durations %+v", cfg)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.MutationRetry.MaxAttempts != 2 {
		t.Errorf("unexpected retry defaults %d/%d", cfg.Retry.MaxAttempts, cfg.MutationRetry.MaxAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	partial := Config{Retry: resilience.Policy{MaxAttempts: 5}}
	partial.ApplyDefaults()
	if partial.Retry.MaxAttempts != 5 || partial.Retry.BaseDelay != time.Second || partial.Retry.RetryIf == nil {
		t.Errorf("partial policy not merged: %+v", partial.Retry)
	}

	bad := Config{StaleTime: -time.Second}
	bad.ApplyDefaults()
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative stale time")
	}
}

func TestConfig_Immediately(t *testing.T) {
	cfg := Config{StaleTime: Immediately, GCTime: Immediately}
	cfg.ApplyDefaults()
	if cfg.StaleTime != Immediately || cfg.GCTime != Immediately {
		t.Fatalf("Immediately replaced by defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	clock := clockwork.NewFakeClockAt(epoch)
	c, err := New(Config{StaleTime: Immediately}, WithClock(clock), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	f := &counter{}
	key := Key{"users", "list"}
	if _, err := Fetch(context.Background(), c, key, f.fetch); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if s := stateOf(t, c, key); !s.IsStale(clock.Now()) {
		t.Errorf("data should be stale right after the fetch: %+v", s)
	}
	if v, _ := Fetch(context.Background(), c, key, f.fetch); v != "v1" {
		t.Errorf("stale read = %q", v)
	}
	eventually(t, "background refetch", func() bool { return f.calls.Load() == 2 })

	gc, err := New(Config{GCTime: Immediately}, WithClock(clock), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = gc.Stop(context.Background()) })
	o := gc.Watch(key)
	gc.SetData(key, "kept")
	if n := gc.GC(); n != 0 {
		t.Fatalf("observed entry evicted: %d", n)
	}
	o.Close()
	if n := gc.GC(); n != 1 {
		t.Errorf("GC evicted %d after the last observer closed, want 1", n)
	}
}

func TestGC_EvictsUnobservedEntriesAfterRetention(t *testing.T) {
	c, clock := newTestClient(t)
	c.SetData(Key{"users", "list"}, "u")
	c.SetData(Key{"posts", "list"}, "p")
	o := c.Watch(Key{"posts", "list"})

	clock.Advance(DefaultGCTime)
	if n := c.GC(); n != 0 {
		t.Fatalf("evicted %d at exactly the retention boundary", n)
	}
	clock.Advance(time.Second)
	if n := c.GC(); n != 1 {
		t.Fatalf("GC evicted %d, want 1", n)
	}
	if _, ok := c.GetState(Key{"posts", "list"}); !ok {
		t.Fatal("observed entry evicted")
	}

	o.Close()
	clock.Advance(DefaultGCTime + time.Second)
	if _, ok := c.GetState(Key{"posts", "list"}); ok {
		t.Error("expired entry should be evicted on read")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestGC_LoopRunsOnInterval(t *testing.T) {
	c, clock := newTestClient(t)
	ctx := context.Background()
	c.SetData(Key{"users", "list"}, "u")

	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}
	clock.Advance(DefaultGCTime + DefaultGCInterval)
	eventually(t, "gc sweep", func() bool { return c.Len() == 0 })

	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("stopped client reported %s", h.Status)
	}
}

func TestClient_Component(t *testing.T) {
	c, _ := newTestClient(t)
	var _ component.Component = c

	c.SetData(Key{"a"}, 1)
	h := c.Health(context.Background())
	if h.Name != "query" || h.Status != component.StatusHealthy || h.Message != "1 entries" {
		t.Errorf("unexpected health %+v", h)
	}
	d := c.Describe()
	if d.Type != "cache" || d.Details != "stale=5m0s gc=10m0s retry=3" {
		t.Errorf("unexpected description %+v", d)
	}
}

func TestSnapshot_SortedByKey(t *testing.T) {
	c, _ := newTestClient(t)
	c.SetData(Key{"users", "list"}, 1)
	c.SetData(Key{"posts", "list"}, 2)
	states := c.Snapshot()
	if len(states) != 2 || states[0].Key.String() != `["posts","list"]` {
		t.Errorf("unexpected snapshot %+v", states)
	}
}

func TestMetrics_Recorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	c, _ := newTestClient(t, WithMeterProvider(mp))
	f := &counter{}
	ctx := context.Background()

	_, _ = Fetch(ctx, c, Key{"users", "list"}, f.fetch)
	_, _ = Fetch(ctx, c, Key{"users", "list"}, f.fetch)
	c.Invalidate(Key{"users"})
	Mutate(ctx, c, Mutation[int, int]{Name: "noop", Fn: func(context.Context, int) (int, error) { return 0, nil }}, 0)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				got[md.Name] += dp.Value
			}
		}
	}
	want := map[string]int64{
		MetricHits:          1,
		MetricMisses:        1,
		MetricFetches:       1,
		MetricInvalidations: 1,
		MetricMutations:     1,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %d, want %d", name, got[name], v)
		}
	}
}
