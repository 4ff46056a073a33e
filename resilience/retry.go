package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kbukum/querykit/errors"
)

// Policy configures retry behavior.
type Policy struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	// CapDelay bounds every delay.
	CapDelay time.Duration `yaml:"cap_delay" mapstructure:"cap_delay"`
	// Factor is the exponential multiplier. 1 gives a fixed delay.
	Factor float64 `yaml:"factor" mapstructure:"factor"`
	// Jitter adds randomness to each delay (0.0 to 1.0).
	Jitter float64 `yaml:"jitter" mapstructure:"jitter"`
	// RetryIf decides whether an error is retried. Defaults to errors.IsTransient.
	RetryIf func(error) bool `yaml:"-" mapstructure:"-"`
	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-" mapstructure:"-"`
	// Clock drives the sleeps. Defaults to the real clock.
	Clock clockwork.Clock `yaml:"-" mapstructure:"-"`
}

// QueryPolicy returns the default policy for query fetches: three attempts,
// delays of 1s, 2s, 4s... capped at 30s.
func QueryPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		CapDelay:    30 * time.Second,
		Factor:      2,
		RetryIf:     errors.IsTransient,
	}
}

// MutationPolicy returns the default policy for mutations: at most one retry
// after a fixed 1s delay.
func MutationPolicy() Policy {
	return Policy{
		MaxAttempts: 2,
		BaseDelay:   time.Second,
		CapDelay:    time.Second,
		Factor:      1,
		RetryIf:     errors.IsTransient,
	}
}

// NoRetry returns a policy that makes a single attempt.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1}
}

// WithDefaults fills zero-valued fields.
func (p Policy) WithDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.CapDelay <= 0 {
		p.CapDelay = 30 * time.Second
	}
	if p.Factor <= 0 {
		p.Factor = 2
	}
	if p.RetryIf == nil {
		p.RetryIf = errors.IsTransient
	}
	if p.Clock == nil {
		p.Clock = clockwork.NewRealClock()
	}
	return p
}

// Delay returns the sleep before retry n (zero-based): min(BaseDelay *
// Factor^n, CapDelay), jittered when Jitter > 0.
func (p Policy) Delay(n int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Factor, float64(n))

	if p.Jitter > 0 {
		spread := d * p.Jitter
		d += (rand.Float64()*2 - 1) * spread
	}

	if p.CapDelay > 0 && d > float64(p.CapDelay) {
		d = float64(p.CapDelay)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Retry runs fn until it succeeds, returns an error RetryIf rejects, or the
// attempts are exhausted. fn receives the 1-based attempt number. The last
// error is returned unchanged.
func Retry[T any](ctx context.Context, p Policy, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	p = p.WithDefaults()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}

		if attempt >= p.MaxAttempts || !p.RetryIf(err) {
			return zero, err
		}

		delay := p.Delay(attempt - 1)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		if delay <= 0 {
			continue
		}
		timer := p.Clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.Chan():
		}
	}
}

// RetryFunc is Retry for functions that return only an error.
func RetryFunc(ctx context.Context, p Policy, fn func(attempt int) error) error {
	_, err := Retry(ctx, p, func(attempt int) (struct{}, error) {
		return struct{}{}, fn(attempt)
	})
	return err
}
