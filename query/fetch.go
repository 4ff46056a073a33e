package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	qerrors "github.com/kbukum/querykit/errors"
	"github.com/kbukum/querykit/logger"
	"github.com/kbukum/querykit/observability"
	"github.com/kbukum/querykit/resilience"
)

var (
	// ErrCancelled is the cause of the error returned to waiters of a fetch
	// that was cancelled or superseded before it produced data.
	ErrCancelled = errors.New("query cancelled")
	// ErrNoFetcher is returned by Refetch for keys never read through Fetch.
	ErrNoFetcher = errors.New("query has no fetch function")
	// ErrTypeMismatch is returned when cached data does not have the
	// requested type.
	ErrTypeMismatch = errors.New("cached data has a different type")
)

// FetchFunc loads the value for a key. The context is cancelled when the
// fetch is cancelled or superseded, not when a waiting caller gives up.
type FetchFunc func(ctx context.Context) (any, error)

// Fetch returns the value for key, loading it with fn when needed.
//
// Fresh data is returned without calling fn. Stale data is returned
// immediately and one background refetch is started. Without data the caller
// waits for the fetch; concurrent callers share it. ctx bounds only the wait.
// Every returned error is an *errors.Error.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error), opts ...QueryOption) (T, error) {
	erased := func(ctx context.Context) (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	v, err := c.fetch(ctx, key, erased, opts)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](key, v)
}

func cast[T any](key Key, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, qerrors.RequestSetup(fmt.Errorf("%w: key %s holds %T, want %T", ErrTypeMismatch, key, v, zero))
	}
	return t, nil
}

func (c *Client) fetch(ctx context.Context, key Key, fn FetchFunc, opts []QueryOption) (any, error) {
	o := c.defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c.mu.Lock()
	e := c.lookup(key)
	if e == nil {
		e = c.newEntry(key)
	}
	e.fn = fn
	e.opts = o

	if !o.enabled {
		data := e.state.Data
		c.mu.Unlock()
		return data, nil
	}

	now := c.clock.Now()
	if e.state.HasData {
		stale := e.state.IsStale(now)
		if stale && !e.fetching {
			c.startFlight(ctx, e)
		}
		data := e.state.Data
		c.mu.Unlock()
		c.metrics.hit(ctx, stale)
		return data, nil
	}

	var ch <-chan singleflight.Result
	if e.fetching {
		ch = c.group.DoChan(e.flightKey, e.flightFn)
	} else {
		ch = c.startFlight(ctx, e)
	}
	c.mu.Unlock()
	c.metrics.miss(ctx)

	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, qerrors.RequestSetup(ctx.Err())
	}
}

// startFlight begins a shared fetch for e. Callers hold c.mu. The flight
// runs on the client base context; caller only contributes a trace link.
func (c *Client) startFlight(caller context.Context, e *entry) <-chan singleflight.Result {
	e.flightSeq++
	flightKey := e.hash + "#" + strconv.FormatUint(e.flightSeq, 10)
	fctx, cancel := context.WithCancel(c.baseCtx)

	gen := e.gen
	fn := e.fn
	pol := c.policy(e.opts.retry)
	staleTime := e.opts.staleTime
	link := trace.LinkFromContext(caller)

	e.fetching = true
	e.cancel = cancel
	e.flightKey = flightKey
	e.preFetch = e.state
	e.state.Status = StatusPending
	e.state.IsFetching = true
	e.state.FailureCount = 0
	e.flightFn = func() (any, error) {
		defer cancel()
		return c.runFlight(fctx, e, gen, fn, pol, staleTime, link)
	}
	c.notify(e)
	return c.group.DoChan(flightKey, e.flightFn)
}

func (c *Client) runFlight(ctx context.Context, e *entry, gen uint64, fn FetchFunc, pol resilience.Policy, staleTime time.Duration, link trace.Link) (any, error) {
	ctx, span := c.tracer.Start(ctx, observability.SpanQueryFetch,
		trace.WithLinks(link),
		trace.WithAttributes(attribute.String(observability.AttrQueryKey, e.hash)),
	)
	defer span.End()

	attempts := 0
	pol.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.metrics.retry(ctx)
		c.log.Debug("fetch retry", logger.Fields(
			logger.FieldKey, e.hash,
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			"delay", delay.String(),
		))
		c.mu.Lock()
		if e.gen == gen && e.fetching {
			e.state.FailureCount = attempt
			c.notify(e)
		}
		c.mu.Unlock()
	}

	data, err := resilience.Retry(ctx, pol, func(attempt int) (any, error) {
		attempts = attempt
		c.metrics.fetch(ctx)
		return callFetch(ctx, fn)
	})
	nerr := qerrors.Normalize(err)
	if nerr != nil {
		span.SetAttributes(attribute.String(observability.AttrErrorKind, nerr.Kind.String()))
		observability.SetSpanError(span, nerr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e.gen != gen || !e.fetching || c.entries[e.hash] != e {
		return supersededResult(e, c.entries[e.hash] == e)
	}

	now := c.clock.Now()
	e.fetching = false
	e.cancel = nil
	e.state.IsFetching = false
	e.touchedAt = now

	if nerr != nil {
		e.invalidated = false
		e.state.Status = StatusError
		e.state.Err = nerr
		e.state.FailureCount = attempts
		c.notify(e)
		c.log.Warn("fetch failed", logger.Fields(
			logger.FieldKey, e.hash,
			logger.FieldAttempt, attempts,
			logger.FieldError, nerr.Error(),
		))
		return nil, nerr
	}

	e.state.Status = StatusSuccess
	e.state.Data = data
	e.state.HasData = true
	e.state.Err = nil
	e.state.FailureCount = 0
	e.state.FetchedAt = now
	e.state.UpdatedAt = now
	e.state.StaleAt = now.Add(staleTime)
	if e.invalidated {
		e.invalidated = false
		e.state.StaleAt = time.Time{}
		if len(e.observers) > 0 {
			c.startFlight(ctx, e)
		}
	}
	c.notify(e)
	return data, nil
}

// supersededResult is what waiters of a discarded flight receive: the
// entry's current data when it has any, otherwise a cancellation error.
func supersededResult(e *entry, live bool) (any, error) {
	if live && e.state.HasData {
		return e.state.Data, nil
	}
	return nil, qerrors.RequestSetup(ErrCancelled)
}

// callFetch runs fn, converting a panic or a non-normalized error into a
// request setup error. Neither is retried.
func callFetch(ctx context.Context, fn FetchFunc) (data any, err error) {
	defer func() {
		if v := recover(); v != nil {
			data, err = nil, qerrors.FromPanic(v)
		}
	}()
	data, err = fn(ctx)
	if err != nil {
		if _, ok := qerrors.As(err); !ok {
			err = qerrors.RequestSetup(err)
		}
		return nil, err
	}
	return data, nil
}

// Refetch forces a fetch of key with its last fetch function and waits for
// it. A fetch in flight is superseded when the entry has data; without data
// there is nothing to refresh yet, so Refetch joins the running fetch and its
// waiters keep their result.
func (c *Client) Refetch(ctx context.Context, key Key) error {
	c.mu.Lock()
	e := c.lookup(key)
	if e == nil || e.fn == nil {
		c.mu.Unlock()
		return qerrors.RequestSetup(fmt.Errorf("%w: %s", ErrNoFetcher, key))
	}
	var ch <-chan singleflight.Result
	if e.fetching && !e.state.HasData {
		ch = c.group.DoChan(e.flightKey, e.flightFn)
	} else {
		c.supersede(e)
		ch = c.startFlight(ctx, e)
	}
	c.mu.Unlock()

	select {
	case r := <-ch:
		return r.Err
	case <-ctx.Done():
		return qerrors.RequestSetup(ctx.Err())
	}
}
