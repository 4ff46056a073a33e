package query

import (
	"fmt"
	"time"

	"github.com/kbukum/querykit/resilience"
)

// Defaults for Config.
const (
	DefaultStaleTime  = 5 * time.Minute
	DefaultGCTime     = 10 * time.Minute
	DefaultGCInterval = time.Minute
)

// Immediately makes data stale as soon as it is fetched when used as
// StaleTime, and evicts idle unobserved entries at once when used as GCTime.
// A zero duration selects the default instead.
const Immediately time.Duration = -1

// Config configures a Client.
type Config struct {
	// StaleTime is how long fetched data counts as fresh. Zero selects
	// DefaultStaleTime; use Immediately for always-stale data.
	StaleTime time.Duration `yaml:"stale_time" mapstructure:"stale_time"`
	// GCTime is how long an unobserved entry is retained. Zero selects
	// DefaultGCTime.
	GCTime time.Duration `yaml:"gc_time" mapstructure:"gc_time"`
	// GCInterval is the period of the garbage-collection sweep.
	GCInterval time.Duration `yaml:"gc_interval" mapstructure:"gc_interval"`
	// Retry is the retry policy for query fetches.
	Retry resilience.Policy `yaml:"retry" mapstructure:"retry"`
	// MutationRetry is the retry policy for mutation functions.
	MutationRetry resilience.Policy `yaml:"mutation_retry" mapstructure:"mutation_retry"`
}

// ApplyDefaults fills zero-valued fields. Immediately is kept as set.
func (c *Config) ApplyDefaults() {
	if c.StaleTime == 0 {
		c.StaleTime = DefaultStaleTime
	}
	if c.GCTime == 0 {
		c.GCTime = DefaultGCTime
	}
	if c.GCInterval <= 0 {
		c.GCInterval = DefaultGCInterval
	}
	c.Retry = mergePolicy(c.Retry, resilience.QueryPolicy())
	c.MutationRetry = mergePolicy(c.MutationRetry, resilience.MutationPolicy())
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.StaleTime < 0 && c.StaleTime != Immediately {
		return fmt.Errorf("query.stale_time must be >= 0 or Immediately (got: %s)", c.StaleTime)
	}
	if c.GCTime < 0 && c.GCTime != Immediately {
		return fmt.Errorf("query.gc_time must be >= 0 or Immediately (got: %s)", c.GCTime)
	}
	if c.Retry.MaxAttempts < 1 || c.MutationRetry.MaxAttempts < 1 {
		return fmt.Errorf("query retry max_attempts must be >= 1")
	}
	return nil
}

// mergePolicy fills the zero fields of p from def. A policy with no attempts
// configured is replaced by def entirely.
func mergePolicy(p, def resilience.Policy) resilience.Policy {
	if p.MaxAttempts == 0 {
		return def
	}
	if p.BaseDelay == 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.CapDelay == 0 {
		p.CapDelay = def.CapDelay
	}
	if p.Factor == 0 {
		p.Factor = def.Factor
	}
	if p.RetryIf == nil {
		p.RetryIf = def.RetryIf
	}
	return p
}

// QueryOption overrides client defaults for one query.
type QueryOption func(*queryOptions)

type queryOptions struct {
	staleTime time.Duration
	gcTime    time.Duration
	retry     resilience.Policy
	enabled   bool
}

// WithStaleTime overrides the stale time.
func WithStaleTime(d time.Duration) QueryOption {
	return func(o *queryOptions) { o.staleTime = d }
}

// WithGCTime overrides the retention time.
func WithGCTime(d time.Duration) QueryOption {
	return func(o *queryOptions) { o.gcTime = d }
}

// WithRetry overrides the retry policy.
func WithRetry(p resilience.Policy) QueryOption {
	return func(o *queryOptions) { o.retry = p }
}

// WithEnabled disables the query when false: Fetch returns cached data if
// any and never fetches.
func WithEnabled(enabled bool) QueryOption {
	return func(o *queryOptions) { o.enabled = enabled }
}
