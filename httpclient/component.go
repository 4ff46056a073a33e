package httpclient

import (
	"context"
	"fmt"

	"github.com/kbukum/querykit/component"
)

// Component wraps an Adapter for the component registry. The adapter is
// created on Start.
type Component struct {
	adapter *Adapter
	config  Config
	opts    []Option
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates an adapter component.
func NewComponent(cfg Config, opts ...Option) *Component {
	cfg.ApplyDefaults()
	return &Component{config: cfg, opts: opts}
}

func (c *Component) Name() string { return c.config.Name }

// Start creates the adapter.
func (c *Component) Start(context.Context) error {
	a, err := New(c.config, c.opts...)
	if err != nil {
		return err
	}
	c.adapter = a
	return nil
}

// Stop releases idle connections.
func (c *Component) Stop(context.Context) error {
	if c.adapter != nil {
		c.adapter.Close()
	}
	return nil
}

func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.adapter == nil {
		h.Status, h.Message = component.StatusUnhealthy, "adapter not started"
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.Name(),
		Type:    "httpclient",
		Details: fmt.Sprintf("%s timeout=%s", c.config.BaseURL, c.config.Timeout),
	}
}

// Adapter returns the adapter, or nil before Start.
func (c *Component) Adapter() *Adapter { return c.adapter }
