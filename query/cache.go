package query

import (
	"context"
	"time"

	"github.com/kbukum/querykit/logger"
)

// GetData returns the cached data for key without fetching.
func GetData[T any](c *Client, key Key) (T, bool) {
	var zero T
	s, ok := c.GetState(key)
	if !ok || !s.HasData {
		return zero, false
	}
	t, ok := s.Data.(T)
	return t, ok
}

// GetState returns a copy of the entry state for key.
func (c *Client) GetState(key Key) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(key)
	if e == nil {
		return State{}, false
	}
	return e.snapshot(), true
}

// SetData writes data for key, creating the entry if needed. The write
// supersedes any fetch in flight and restarts the staleness window.
func (c *Client) SetData(key Key, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(key)
	if e == nil {
		e = c.newEntry(key)
	}
	c.write(e, data)
}

// UpdateData replaces the data for key with fn(old). ok is false when the
// key holds no data of type T.
func UpdateData[T any](c *Client, key Key, fn func(old T, ok bool) T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(key)
	if e == nil {
		e = c.newEntry(key)
	}
	var old T
	ok := false
	if e.state.HasData {
		old, ok = e.state.Data.(T)
	}
	c.write(e, fn(old, ok))
}

// write stores data as the entry's confirmed value. Callers hold c.mu.
func (c *Client) write(e *entry, data any) {
	c.supersede(e)
	now := c.clock.Now()
	e.state.Status = StatusSuccess
	e.state.Data = data
	e.state.HasData = true
	e.state.Err = nil
	e.state.FailureCount = 0
	e.state.UpdatedAt = now
	e.state.StaleAt = now.Add(e.opts.staleTime)
	e.touchedAt = now
	c.notify(e)
}

// Invalidate marks every entry under prefix stale and returns the count.
// Observed entries with a known fetch function refetch in the background;
// unobserved ones refetch on their next read.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	matched := c.matching(prefix)
	for _, e := range matched {
		e.state.StaleAt = time.Time{}
		if e.fetching {
			e.invalidated = true
			continue
		}
		if len(e.observers) > 0 && e.fn != nil && e.opts.enabled {
			c.startFlight(context.Background(), e)
			continue
		}
		c.notify(e)
	}
	c.mu.Unlock()

	c.metrics.invalidate(context.Background(), len(matched))
	if len(matched) > 0 {
		c.log.Debug("invalidated", logger.Fields(logger.FieldKey, prefix.String(), "count", len(matched)))
	}
	return len(matched)
}

// Remove deletes every entry under prefix, cancelling their fetches, and
// returns the count. Observed entries are reset to idle.
func (c *Client) Remove(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	matched := c.matching(prefix)
	for _, e := range matched {
		c.drop(e)
	}
	return len(matched)
}

// Clear removes every entry.
func (c *Client) Clear() int {
	return c.Remove(nil)
}

// Cancel aborts the in-flight fetches under prefix and restores each entry
// to its state before the fetch began. It returns the number cancelled.
func (c *Client) Cancel(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.matching(prefix) {
		if !e.fetching {
			continue
		}
		c.supersede(e)
		e.state = e.preFetch
		c.notify(e)
		n++
	}
	return n
}
