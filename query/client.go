package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/querykit/component"
	"github.com/kbukum/querykit/logger"
	"github.com/kbukum/querykit/resilience"
)

const instrumentationName = "github.com/kbukum/querykit/query"

// MutationErrorHandler is called for every failed mutation, after rollback.
type MutationErrorHandler func(ctx context.Context, mc *MutationContext, err error)

// Client is the cache coordinator. It is safe for concurrent use.
type Client struct {
	cfg             Config
	clock           clockwork.Clock
	log             *logger.Logger
	tracer          trace.Tracer
	meter           metric.Meter
	metrics         *metrics
	onMutationError MutationErrorHandler

	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group

	// baseCtx parents every shared fetch, so a fetch outlives the caller
	// that started it.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	lifecycle sync.Mutex
	gcStop    chan struct{}
	gcDone    chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithClock sets the clock used for staleness, retention and retry delays.
func WithClock(c clockwork.Clock) Option {
	return func(qc *Client) { qc.clock = c }
}

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(qc *Client) { qc.log = l }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(qc *Client) { qc.meter = mp.Meter(instrumentationName) }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(qc *Client) { qc.tracer = tp.Tracer(instrumentationName) }
}

// WithMutationErrorHandler sets the handler called for every failed mutation.
func WithMutationErrorHandler(h MutationErrorHandler) Option {
	return func(qc *Client) { qc.onMutationError = h }
}

// New creates a client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.log = logger.OrGlobal(c.log).WithComponent("query")
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(instrumentationName)
	}
	if c.meter == nil {
		c.meter = otel.Meter(instrumentationName)
	}
	m, err := newMetrics(c.meter)
	if err != nil {
		c.log.Warn("query metrics disabled", logger.ErrorFields("init_metrics", err))
	}
	c.metrics = m
	c.baseCtx, c.baseCancel = context.WithCancel(context.Background())
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Clock returns the client clock.
func (c *Client) Clock() clockwork.Clock { return c.clock }

// entry is the internal record behind a key. All fields are guarded by
// Client.mu.
type entry struct {
	key   Key
	hash  string
	parts []string
	state State

	// gen is bumped by every write. A fetch started at an older generation
	// is superseded and its result discarded.
	gen uint64

	fn   FetchFunc
	opts queryOptions

	fetching    bool
	flightSeq   uint64
	flightKey   string
	flightFn    func() (any, error)
	cancel      context.CancelFunc
	preFetch    State
	invalidated bool

	observers map[*Observer]struct{}
	touchedAt time.Time
}

func (c *Client) newEntry(key Key) *entry {
	parts := key.parts()
	e := &entry{
		key:       append(Key(nil), key...),
		hash:      "[" + strings.Join(parts, ",") + "]",
		parts:     parts,
		state:     State{Status: StatusIdle},
		opts:      c.defaultOptions(),
		observers: make(map[*Observer]struct{}),
		touchedAt: c.clock.Now(),
	}
	c.entries[e.hash] = e
	return e
}

func (c *Client) defaultOptions() queryOptions {
	return queryOptions{
		staleTime: c.cfg.StaleTime,
		gcTime:    c.cfg.GCTime,
		retry:     c.cfg.Retry,
		enabled:   true,
	}
}

// policy returns p driven by the client clock unless it has its own.
func (c *Client) policy(p resilience.Policy) resilience.Policy {
	if p.Clock == nil {
		p.Clock = c.clock
	}
	return p
}

// lookup returns the live entry for key, evicting it first if its retention
// has lapsed. Callers hold c.mu.
func (c *Client) lookup(key Key) *entry {
	e, ok := c.entries[key.String()]
	if !ok {
		return nil
	}
	if e.expired(c.clock.Now()) {
		delete(c.entries, e.hash)
		c.metrics.evict(context.Background(), 1)
		return nil
	}
	return e
}

// expired reports whether the entry is unobserved, idle and past its
// retention window.
func (e *entry) expired(now time.Time) bool {
	if len(e.observers) > 0 || e.fetching {
		return false
	}
	return now.Sub(e.touchedAt) > e.opts.gcTime
}

// matching returns the entries whose key starts with prefix, in key order.
// Callers hold c.mu.
func (c *Client) matching(prefix Key) []*entry {
	pp := prefix.parts()
	var out []*entry
	for _, e := range c.entries {
		if hasPrefix(e.parts, pp) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].hash < out[j].hash })
	return out
}

// snapshot copies the entry state for callers and observers.
func (e *entry) snapshot() State {
	s := e.state
	s.Key = append(Key(nil), e.key...)
	s.Observers = len(e.observers)
	return s
}

func (c *Client) notify(e *entry) {
	if len(e.observers) == 0 {
		return
	}
	s := e.snapshot()
	for o := range e.observers {
		o.push(s)
	}
}

// supersede cancels any in-flight fetch and bumps the generation so its
// result is discarded. Callers hold c.mu.
func (c *Client) supersede(e *entry) {
	if e.fetching {
		e.cancel()
		e.fetching = false
		e.cancel = nil
		e.state.IsFetching = false
		if e.state.Status == StatusPending {
			e.state.Status = e.preFetch.Status
		}
	}
	e.invalidated = false
	e.gen++
}

// drop removes an entry. Observed entries are reset to idle instead, so
// their observers stay attached. Callers hold c.mu.
func (c *Client) drop(e *entry) {
	c.supersede(e)
	if len(e.observers) > 0 {
		e.state = State{Status: StatusIdle}
		c.notify(e)
		return
	}
	delete(c.entries, e.hash)
}

// GC evicts every entry past its retention window and returns the count.
func (c *Client) GC() int {
	c.mu.Lock()
	now := c.clock.Now()
	n := 0
	for hash, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, hash)
			n++
		}
	}
	c.mu.Unlock()

	c.metrics.evict(context.Background(), n)
	if n > 0 {
		c.log.Debug("gc evicted entries", logger.Fields("count", n))
	}
	return n
}

// Len returns the number of entries, including unevicted expired ones.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Snapshot returns the state of every entry in key order.
func (c *Client) Snapshot() []State {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]State, 0, len(c.entries))
	for _, e := range c.matching(nil) {
		out = append(out, e.snapshot())
	}
	return out
}

// --- component.Component ---

var _ component.Component = (*Client)(nil)
var _ component.Describable = (*Client)(nil)

// Name implements component.Component.
func (c *Client) Name() string { return "query" }

// Start launches the garbage-collection loop. Calling Start twice is a no-op.
func (c *Client) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.gcStop != nil {
		return nil
	}
	c.gcStop = make(chan struct{})
	c.gcDone = make(chan struct{})
	ticker := c.clock.NewTicker(c.cfg.GCInterval)

	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				c.GC()
			}
		}
	}(c.gcStop, c.gcDone)

	c.log.Debug("gc loop started", logger.Fields("interval", c.cfg.GCInterval.String()))
	return nil
}

// Stop ends the GC loop and cancels every in-flight fetch. The client must
// not be used for fetching afterwards.
func (c *Client) Stop(ctx context.Context) error {
	c.lifecycle.Lock()
	stop, done := c.gcStop, c.gcDone
	c.gcStop, c.gcDone = nil, nil
	c.lifecycle.Unlock()

	c.baseCancel()
	if stop == nil {
		return nil
	}
	close(stop)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health implements component.Component.
func (c *Client) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.baseCtx.Err() != nil {
		h.Status = component.StatusUnhealthy
		h.Message = "stopped"
		return h
	}
	h.Message = fmt.Sprintf("%d entries", c.Len())
	return h
}

// Describe implements component.Describable.
func (c *Client) Describe() component.Description {
	return component.Description{
		Name: "Query cache",
		Type: "cache",
		Details: fmt.Sprintf("stale=%s gc=%s retry=%d",
			c.cfg.StaleTime, c.cfg.GCTime, c.cfg.Retry.MaxAttempts),
	}
}
