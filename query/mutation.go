package query

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	qerrors "github.com/kbukum/querykit/errors"
	"github.com/kbukum/querykit/logger"
	"github.com/kbukum/querykit/observability"
	"github.com/kbukum/querykit/resilience"
)

// Mutation describes a write to the server and its effect on the cache.
//
// The lifecycle is: OnMutate (provisional writes, snapshotted), Fn with
// retries, then on success OnSuccess (confirmed writes) or on failure a
// rollback of every snapshot. OnSettled runs on both paths. Invalidations
// requested through the Tx are applied after the mutation settles, then the
// Hooks fire.
type Mutation[V, R any] struct {
	// Name labels logs and metrics, e.g. "users.update".
	Name string
	// Fn performs the write.
	Fn func(ctx context.Context, vars V) (R, error)
	// OnMutate runs before Fn. An error aborts the mutation and rolls back.
	OnMutate func(tx *Tx, vars V) error
	// OnSuccess runs after Fn succeeds.
	OnSuccess func(tx *Tx, result R, vars V)
	// OnError runs after the rollback of a failed mutation.
	OnError func(tx *Tx, err error, vars V)
	// OnSettled runs last on both paths. err is nil on success.
	OnSettled func(tx *Tx, result R, err error, vars V)
	// Retry overrides the client mutation policy.
	Retry *resilience.Policy
	// Hooks are notified once the cache work is done.
	Hooks Hooks[V, R]
}

// Hooks are caller notifications. They do not touch the cache.
type Hooks[V, R any] struct {
	OnSuccess func(result R, vars V)
	OnError   func(err error, vars V)
}

// Result is the outcome of Mutate. Err is an *errors.Error when set.
type Result[R any] struct {
	Data    R
	Err     error
	Context *MutationContext
}

// OK reports whether the mutation succeeded.
func (r Result[R]) OK() bool { return r.Err == nil }

// MutationContext carries the snapshots of one mutation.
type MutationContext struct {
	ID        string
	Name      string
	StartedAt time.Time
	// Values holds data OnMutate wants the later callbacks to see.
	Values map[string]any

	snapshots []snapshot
	index     map[string]int
}

type snapshot struct {
	key     Key
	hash    string
	existed bool
	state   State
}

// Previous returns the data key held when the mutation first touched it.
func (mc *MutationContext) Previous(key Key) (any, bool) {
	i, ok := mc.index[key.String()]
	if !ok {
		return nil, false
	}
	s := mc.snapshots[i]
	if !s.existed || !s.state.HasData {
		return nil, false
	}
	return s.state.Data, true
}

// Snapshots returns the number of keys snapshotted so far.
func (mc *MutationContext) Snapshots() int { return len(mc.snapshots) }

// Tx is the cache view handed to mutation callbacks. Writes through a Tx are
// snapshotted on first touch so a failure can restore them.
type Tx struct {
	c             *Client
	mc            *MutationContext
	invalidations []Key
}

// Context returns the mutation context.
func (tx *Tx) Context() *MutationContext { return tx.mc }

// Get returns the current data for key.
func (tx *Tx) Get(key Key) (any, bool) {
	s, ok := tx.c.GetState(key)
	if !ok || !s.HasData {
		return nil, false
	}
	return s.Data, true
}

// Previous returns the data key held before this mutation touched it.
func (tx *Tx) Previous(key Key) (any, bool) { return tx.mc.Previous(key) }

// Set writes data for key, cancelling any fetch in flight for it.
func (tx *Tx) Set(key Key, data any) {
	c := tx.c
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(key)
	tx.snapshot(key, e)
	if e == nil {
		e = c.newEntry(key)
	}
	c.write(e, data)
}

// Update replaces the data for key with fn(old).
func (tx *Tx) Update(key Key, fn func(old any, ok bool) any) {
	c := tx.c
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(key)
	tx.snapshot(key, e)
	if e == nil {
		e = c.newEntry(key)
	}
	var old any
	if e.state.HasData {
		old = e.state.Data
	}
	c.write(e, fn(old, e.state.HasData))
}

// Remove deletes every entry under prefix.
func (tx *Tx) Remove(prefix Key) {
	c := tx.c
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.matching(prefix) {
		tx.snapshot(e.key, e)
		c.drop(e)
	}
}

// Invalidate queues an invalidation of prefix for when the mutation settles.
func (tx *Tx) Invalidate(prefix Key) {
	tx.invalidations = append(tx.invalidations, append(Key(nil), prefix...))
}

// snapshot records the state of key the first time the mutation touches
// it. Callers hold c.mu.
func (tx *Tx) snapshot(key Key, e *entry) {
	hash := key.String()
	if _, seen := tx.mc.index[hash]; seen {
		return
	}
	s := snapshot{key: append(Key(nil), key...), hash: hash}
	if e != nil {
		s.existed = true
		s.state = e.state
	}
	tx.mc.index[hash] = len(tx.mc.snapshots)
	tx.mc.snapshots = append(tx.mc.snapshots, s)
}

// rollback restores every snapshot, newest first.
func (tx *Tx) rollback() int {
	c := tx.c
	c.mu.Lock()
	defer c.mu.Unlock()
	snaps := tx.mc.snapshots
	for i := len(snaps) - 1; i >= 0; i-- {
		s := snaps[i]
		e := c.entries[s.hash]
		if !s.existed {
			if e != nil {
				c.drop(e)
			}
			continue
		}
		if e == nil {
			e = c.newEntry(s.key)
		}
		c.supersede(e)
		restored := s.state
		restored.IsFetching = false
		if restored.Status == StatusPending {
			restored.Status = StatusIdle
			if restored.HasData {
				restored.Status = StatusSuccess
			}
		}
		e.state = restored
		e.touchedAt = c.clock.Now()
		c.notify(e)
	}
	return len(snaps)
}

func (tx *Tx) flush() {
	queued := tx.invalidations
	tx.invalidations = nil
	for _, k := range queued {
		tx.c.Invalidate(k)
	}
}

// Mutate runs m with vars. It never panics on behalf of a callback: a panic
// in OnMutate or Fn becomes a terminal request setup error.
func Mutate[V, R any](ctx context.Context, c *Client, m Mutation[V, R], vars V) Result[R] {
	mc := &MutationContext{
		ID:        uuid.NewString(),
		Name:      m.Name,
		StartedAt: c.clock.Now(),
		Values:    make(map[string]any),
		index:     make(map[string]int),
	}
	tx := &Tx{c: c, mc: mc}
	log := c.log.WithFields(logger.Fields(logger.FieldMutationID, mc.ID, logger.FieldOperation, m.Name))

	ctx, span := c.tracer.Start(ctx, observability.SpanMutation)
	defer span.End()
	span.SetAttributes(attribute.String("mutation.name", m.Name))

	var (
		result R
		err    error
	)
	if m.OnMutate != nil {
		err = guard(func() error { return m.OnMutate(tx, vars) })
	}
	if err == nil {
		pol := c.cfg.MutationRetry
		if m.Retry != nil {
			pol = *m.Retry
		}
		pol.OnRetry = func(attempt int, cause error, _ time.Duration) {
			log.Debug("mutation retry", logger.Fields(logger.FieldAttempt, attempt, logger.FieldError, cause.Error()))
		}
		result, err = resilience.Retry(ctx, c.policy(pol), func(int) (R, error) {
			return callMutation(ctx, m.Fn, vars)
		})
	}

	if err == nil {
		if m.OnSuccess != nil {
			runCallback(log, "on_success", func() { m.OnSuccess(tx, result, vars) })
		}
		if m.OnSettled != nil {
			runCallback(log, "on_settled", func() { m.OnSettled(tx, result, nil, vars) })
		}
		tx.flush()
		c.metrics.mutation(ctx, m.Name, true)
		if m.Hooks.OnSuccess != nil {
			runCallback(log, "hook_on_success", func() { m.Hooks.OnSuccess(result, vars) })
		}
		return Result[R]{Data: result, Context: mc}
	}

	nerr := qerrors.Normalize(err)
	span.SetAttributes(attribute.String(observability.AttrErrorKind, nerr.Kind.String()))
	observability.SetSpanError(span, nerr)

	restored := tx.rollback()
	var zero R
	if m.OnError != nil {
		runCallback(log, "on_error", func() { m.OnError(tx, nerr, vars) })
	}
	if m.OnSettled != nil {
		runCallback(log, "on_settled", func() { m.OnSettled(tx, zero, nerr, vars) })
	}
	tx.flush()
	c.metrics.mutation(ctx, m.Name, false)

	log.Debug("mutation rolled back", logger.Fields("snapshots", restored, logger.FieldError, nerr.Error()))
	if m.Hooks.OnError != nil {
		runCallback(log, "hook_on_error", func() { m.Hooks.OnError(nerr, vars) })
	}
	if c.onMutationError != nil {
		runCallback(log, "mutation_error_handler", func() { c.onMutationError(ctx, mc, nerr) })
	}
	return Result[R]{Err: nerr, Context: mc}
}

func callMutation[V, R any](ctx context.Context, fn func(context.Context, V) (R, error), vars V) (result R, err error) {
	defer func() {
		if v := recover(); v != nil {
			var zero R
			result, err = zero, qerrors.FromPanic(v)
		}
	}()
	result, err = fn(ctx, vars)
	if err != nil {
		if _, ok := qerrors.As(err); !ok {
			err = qerrors.RequestSetup(err)
		}
	}
	return result, err
}

// guard runs fn, converting a panic into a request setup error.
func guard(fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = qerrors.FromPanic(v)
		}
	}()
	return fn()
}

// runCallback runs a post-settlement callback. A panic is logged and
// swallowed; the mutation outcome is already decided.
func runCallback(log *logger.Logger, name string, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			log.Error("mutation callback panicked", logger.Fields(
				logger.FieldOperation, name,
				logger.FieldError, qerrors.FromPanic(v).Error(),
			))
		}
	}()
	fn()
}
