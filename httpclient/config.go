package httpclient

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kbukum/querykit/tokenstore"
	"github.com/kbukum/querykit/version"
)

const (
	// DefaultBaseURL is the resource server used when none is configured.
	DefaultBaseURL = "https://jsonplaceholder.typicode.com"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 10 * time.Second
	// DefaultLoginPath is passed to the Redirector on a 401.
	DefaultLoginPath = "/login"
	// HeaderRequestID carries the per-request id.
	HeaderRequestID = "X-Request-ID"
)

// Config configures the HTTP adapter.
type Config struct {
	// Name identifies the adapter in logs and the component registry.
	Name string `yaml:"name" mapstructure:"name"`
	// BaseURL is prepended to every request path.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout bounds one request including reading the body.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Headers are sent with every request. Request headers override them.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// LoginPath is where the Redirector sends the user after a 401.
	LoginPath string `yaml:"login_path" mapstructure:"login_path"`
	// TokenKey is the token store key holding the bearer token.
	TokenKey string `yaml:"token_key" mapstructure:"token_key"`
	// Debug enables request and response logging.
	Debug bool `yaml:"debug" mapstructure:"debug"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "http"
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.LoginPath == "" {
		c.LoginPath = DefaultLoginPath
	}
	if c.TokenKey == "" {
		c.TokenKey = tokenstore.DefaultKey
	}
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   version.UserAgent(),
	}
	for k, v := range c.Headers {
		headers[k] = v
	}
	c.Headers = headers
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("httpclient: invalid base_url %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("httpclient: base_url must be http or https (got: %q)", c.BaseURL)
	}
	return nil
}
