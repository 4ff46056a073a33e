package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/querykit/config"
	"github.com/kbukum/querykit/httpclient"
)

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	cfg.ApplyDefaults()

	if cfg.Name != appName || cfg.Environment != config.EnvProduction {
		t.Errorf("unexpected service defaults %+v", cfg.ServiceConfig)
	}
	if cfg.API.BaseURL != httpclient.DefaultBaseURL || cfg.API.Debug {
		t.Errorf("unexpected api defaults %+v", cfg.API)
	}
	if cfg.Query.StaleTime != 5*time.Minute || cfg.Query.Retry.MaxAttempts != 3 {
		t.Errorf("unexpected query defaults %+v", cfg.Query)
	}
	if cfg.Auth.Store != StoreFile || cfg.Redis.Enabled {
		t.Errorf("unexpected auth defaults %+v redis=%v", cfg.Auth, cfg.Redis.Enabled)
	}
	if cfg.Telemetry.ServiceName != appName || cfg.Telemetry.Environment != config.EnvProduction {
		t.Errorf("unexpected telemetry defaults %+v", cfg.Telemetry)
	}
}

func TestAppConfig_DerivedSettings(t *testing.T) {
	tests := []struct {
		name  string
		cfg   AppConfig
		check func(t *testing.T, cfg AppConfig)
	}{
		{
			name: "development enables request logging",
			cfg:  AppConfig{ServiceConfig: config.ServiceConfig{Environment: config.EnvDevelopment}},
			check: func(t *testing.T, cfg AppConfig) {
				if !cfg.API.Debug || cfg.Logging.Level != "debug" {
					t.Errorf("expected debug logging, got api=%v level=%s", cfg.API.Debug, cfg.Logging.Level)
				}
			},
		},
		{
			name: "redis store enables redis",
			cfg:  AppConfig{Auth: AuthConfig{Store: StoreRedis}},
			check: func(t *testing.T, cfg AppConfig) {
				if !cfg.Redis.Enabled || cfg.Redis.Addr == "" {
					t.Errorf("expected redis enabled, got %+v", cfg.Redis)
				}
			},
		},
		{
			name: "memory store needs no file",
			cfg:  AppConfig{Auth: AuthConfig{Store: StoreMemory}},
			check: func(t *testing.T, cfg AppConfig) {
				if cfg.Auth.File != "" {
					t.Errorf("unexpected file %q", cfg.Auth.File)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestAppConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "unknown store", mutate: func(c *AppConfig) { c.Auth.Store = "cookie" }, wantErr: "auth.store"},
		{name: "file store without path", mutate: func(c *AppConfig) { c.Auth.File = "" }, wantErr: "auth.file"},
		{name: "bad base url", mutate: func(c *AppConfig) { c.API.BaseURL = "ftp://example.com" }, wantErr: "base_url"},
		{name: "bad environment", mutate: func(c *AppConfig) { c.Environment = "qa" }, wantErr: "environment"},
		{name: "unknown cipher", mutate: func(c *AppConfig) { c.Auth.EncryptionKey, c.Auth.Algorithm = "k", "rot13" }, wantErr: "auth.algorithm"},
		{name: "bad sample rate", mutate: func(c *AppConfig) { c.Telemetry.SampleRate = 2 }, wantErr: "sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Auth: AuthConfig{File: "/tmp/querykit.json"}}
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfig_FileAndAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yaml := "api:\n  base_url: https://file.example.com\n  timeout: 3s\nquery:\n  stale_time: 1m\nauth:\n  store: memory\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("file values", func(t *testing.T) {
		t.Setenv("NEXT_PUBLIC_API_BASE_URL", "")
		t.Setenv("API_BASE_URL", "")
		t.Setenv("QUERYKIT_API_BASE_URL", "")
		cfg, err := LoadConfig(config.WithConfigFile(path))
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.API.BaseURL != "https://file.example.com" || cfg.API.Timeout != 3*time.Second {
			t.Errorf("unexpected api %+v", cfg.API)
		}
		if cfg.Query.StaleTime != time.Minute || cfg.Auth.Store != StoreMemory {
			t.Errorf("unexpected query=%+v auth=%+v", cfg.Query, cfg.Auth)
		}
	})

	t.Run("public env alias wins", func(t *testing.T) {
		t.Setenv("NEXT_PUBLIC_API_BASE_URL", "https://public.example.com")
		t.Setenv("API_BASE_URL", "https://plain.example.com")
		t.Setenv("NODE_ENV", config.EnvStaging)
		cfg, err := LoadConfig(config.WithConfigFile(path))
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.API.BaseURL != "https://public.example.com" {
			t.Errorf("unexpected base url %q", cfg.API.BaseURL)
		}
		if cfg.Environment != config.EnvStaging {
			t.Errorf("unexpected environment %q", cfg.Environment)
		}
	})
}
