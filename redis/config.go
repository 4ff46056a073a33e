package redis

import (
	"fmt"
	"time"
)

// Config holds Redis connection configuration.
type Config struct {
	// Enabled controls whether the Redis component is active.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Addr is the server address (host:port).
	Addr string `yaml:"addr" mapstructure:"addr"`
	// Password is the server password.
	Password string `yaml:"password" mapstructure:"password"`
	// DB is the database number.
	DB int `yaml:"db" mapstructure:"db"`
	// PoolSize is the maximum number of socket connections.
	PoolSize int `yaml:"pool_size" mapstructure:"pool_size"`
	// MaxRetries is the number of command retries go-redis performs.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
	// DialTimeout bounds establishing new connections.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	// ReadTimeout bounds socket reads.
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	// WriteTimeout bounds socket writes.
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	// KeyPrefix namespaces every key written by the token store.
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
	// TokenTTL expires stored tokens. 0 keeps them until cleared.
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "querykit:"
	}
}

// Validate checks required fields. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("redis.pool_size must be > 0")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0")
	}
	if c.TokenTTL < 0 {
		return fmt.Errorf("redis.token_ttl must be >= 0")
	}
	return nil
}
