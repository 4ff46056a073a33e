package query

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kbukum/querykit/logger"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, opts ...Option) (*Client, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	base := []Option{WithClock(clock), WithLogger(logger.Nop())}
	c, err := New(Config{}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Stop(context.Background()) })
	return c, clock
}

// counter is a fetch function that returns call-numbered values.
type counter struct {
	calls atomic.Int32
}

func (f *counter) fetch(context.Context) (string, error) {
	n := f.calls.Add(1)
	return "v" + strconv.Itoa(int(n)), nil
}

// gate is a fetch function that blocks until released or cancelled.
type gate struct {
	calls   atomic.Int32
	release chan string
}

func newGate() *gate { return &gate{release: make(chan string, 8)} }

func (g *gate) fetch(ctx context.Context) (string, error) {
	g.calls.Add(1)
	select {
	case v := <-g.release:
		return v, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func stateOf(t *testing.T, c *Client, key Key) State {
	t.Helper()
	s, ok := c.GetState(key)
	if !ok {
		t.Fatalf("no entry for %s", key)
	}
	return s
}
