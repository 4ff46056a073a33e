package query

import "sync"

// Observer receives the state of one key whenever it changes. An observed
// entry is never garbage collected.
type Observer struct {
	c    *Client
	key  Key
	ch   chan State
	once sync.Once
	mu   sync.Mutex
	last State
}

// Watch attaches an observer to key, creating an idle entry if needed. The
// current state is delivered immediately. Close releases the observer.
func (c *Client) Watch(key Key) *Observer {
	o := &Observer{c: c, key: append(Key(nil), key...), ch: make(chan State, 1)}

	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(key)
	if e == nil {
		e = c.newEntry(key)
	}
	e.observers[o] = struct{}{}
	o.push(e.snapshot())
	return o
}

// Key returns the observed key.
func (o *Observer) Key() Key { return o.key }

// States delivers state changes. Only the latest undelivered state is kept;
// a slow reader skips intermediate states. The channel is closed by Close.
func (o *Observer) States() <-chan State { return o.ch }

// Current returns the most recent state pushed to the observer.
func (o *Observer) Current() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// push replaces any undelivered state with s. Called with Client.mu held,
// which serializes producers.
func (o *Observer) push(s State) {
	o.mu.Lock()
	o.last = s
	o.mu.Unlock()
	select {
	case <-o.ch:
	default:
	}
	o.ch <- s
}

// Close detaches the observer. The entry's retention window starts now.
func (o *Observer) Close() {
	o.once.Do(func() {
		c := o.c
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.entries[o.key.String()]; ok {
			if _, attached := e.observers[o]; attached {
				delete(e.observers, o)
				e.touchedAt = c.clock.Now()
			}
		}
		close(o.ch)
	})
}
