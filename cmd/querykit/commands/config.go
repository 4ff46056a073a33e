package commands

import (
	"fmt"
	"slices"

	"github.com/kbukum/querykit/config"
	"github.com/kbukum/querykit/encryption"
	"github.com/kbukum/querykit/httpclient"
	"github.com/kbukum/querykit/observability"
	"github.com/kbukum/querykit/query"
	"github.com/kbukum/querykit/redis"
	"github.com/kbukum/querykit/tokenstore"
	"github.com/kbukum/querykit/version"
)

const appName = "querykit"

// Token store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

var validStores = []string{StoreMemory, StoreFile, StoreRedis}

var validAlgorithms = []encryption.Algorithm{encryption.AlgorithmAESGCM, encryption.AlgorithmChaCha20}

// AppConfig is the configuration of the querykit CLI.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	API       httpclient.Config    `yaml:"api" mapstructure:"api"`
	Query     query.Config         `yaml:"query" mapstructure:"query"`
	Auth      AuthConfig           `yaml:"auth" mapstructure:"auth"`
	Redis     redis.Config         `yaml:"redis" mapstructure:"redis"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// AuthConfig selects where the bearer token is kept between invocations.
type AuthConfig struct {
	// Store is one of memory, file or redis.
	Store string `yaml:"store" mapstructure:"store"`
	// File is the file store path. Defaults to the user config dir.
	File string `yaml:"file" mapstructure:"file"`
	// EncryptionKey, when set, encrypts the token before it is stored.
	EncryptionKey string `yaml:"encryption_key" mapstructure:"encryption_key"`
	// Algorithm is aes-256-gcm (default) or chacha20-poly1305.
	Algorithm string `yaml:"algorithm" mapstructure:"algorithm"`
}

// ApplyDefaults fills zero-valued fields. A CLI session defaults to the
// production environment so development logging stays opt-in.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = appName
	}
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	if c.Environment == "" {
		c.Environment = config.EnvProduction
	}
	c.ServiceConfig.ApplyDefaults()

	c.API.ApplyDefaults()
	c.API.Debug = c.API.Debug || c.IsDevelopment()
	c.Query.ApplyDefaults()

	if c.Auth.Store == "" {
		c.Auth.Store = StoreFile
	}
	if c.Auth.Store == StoreFile && c.Auth.File == "" {
		if path, err := tokenstore.DefaultFilePath(); err == nil {
			c.Auth.File = path
		}
	}
	if c.Auth.EncryptionKey != "" && c.Auth.Algorithm == "" {
		c.Auth.Algorithm = string(encryption.AlgorithmAESGCM)
	}
	if c.Auth.Store == StoreRedis {
		c.Redis.Enabled = true
	}
	c.Redis.ApplyDefaults()

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.Name
	}
	if c.Telemetry.ServiceVersion == "" {
		c.Telemetry.ServiceVersion = c.Version
	}
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = c.Environment
	}
	c.Telemetry.ApplyDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Query.Validate(); err != nil {
		return err
	}
	if !slices.Contains(validStores, c.Auth.Store) {
		return fmt.Errorf("auth.store must be one of %v (got: %s)", validStores, c.Auth.Store)
	}
	if c.Auth.Store == StoreFile && c.Auth.File == "" {
		return fmt.Errorf("auth.file is required for the file store")
	}
	if c.Auth.EncryptionKey != "" && !slices.Contains(validAlgorithms, encryption.Algorithm(c.Auth.Algorithm)) {
		return fmt.Errorf("auth.algorithm must be one of %v (got: %s)", validAlgorithms, c.Auth.Algorithm)
	}
	if err := c.Redis.Validate(); err != nil {
		return err
	}
	return c.Telemetry.Validate()
}

// LoadConfig reads the configuration from the config file, .env and the
// environment. NEXT_PUBLIC_API_BASE_URL and API_BASE_URL override the API
// base URL; NODE_ENV and APP_ENV select the environment.
func LoadConfig(opts ...config.LoaderOption) (*AppConfig, error) {
	opts = append([]config.LoaderOption{
		config.WithEnvAlias("api.base_url", "NEXT_PUBLIC_API_BASE_URL", "API_BASE_URL"),
		config.WithEnvAlias("environment", "NODE_ENV", "APP_ENV"),
	}, opts...)

	var cfg AppConfig
	if err := config.LoadConfig(appName, &cfg, opts...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
