package redis

import (
	"context"
	"fmt"

	"github.com/kbukum/querykit/component"
	"github.com/kbukum/querykit/logger"
)

// Component wraps Client for the component registry.
type Component struct {
	cfg    Config
	log    *logger.Logger
	client *Client
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a Redis component. The client is created on Start.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log}
}

// NewClientComponent wraps an existing client. Start only verifies
// connectivity and Stop closes the client.
func NewClientComponent(client *Client) *Component {
	return &Component{cfg: client.cfg, log: client.log, client: client}
}

// Client returns the client, or nil before Start.
func (c *Component) Client() *Client { return c.client }

func (c *Component) Name() string { return "redis" }

// Start creates the client when needed and verifies connectivity.
func (c *Component) Start(ctx context.Context) error {
	client := c.client
	if client == nil {
		var err error
		if client, err = New(c.cfg, c.log); err != nil {
			return fmt.Errorf("redis start: %w", err)
		}
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis start: %w", err)
	}
	c.client = client
	return nil
}

func (c *Component) Stop(context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case c.client == nil:
		h.Status, h.Message = component.StatusUnhealthy, "redis not initialized"
	default:
		if err := c.client.Ping(ctx); err != nil {
			h.Status, h.Message = component.StatusUnhealthy, err.Error()
		}
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Redis",
		Type:    "redis",
		Details: fmt.Sprintf("%s db=%d prefix=%s", c.cfg.Addr, c.cfg.DB, c.cfg.KeyPrefix),
	}
}
