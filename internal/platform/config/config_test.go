package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/assessments",
		StoreDriver:        StoreDriverPostgres,
		JWTSecret:          "test-secret",
		Environment:        "test",
		MaxBodyBytes:       65536,
		RateLimitPerMinute: 60,
		DBMaxConns:         5,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "memory without database", mutate: func(c *Config) { c.StoreDriver = StoreDriverMemory; c.DatabaseURL = "" }},
		{name: "missing database url", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "DATABASE_URL"},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "sqlite" }, wantErr: "STORE_DRIVER"},
		{name: "memory in production", mutate: func(c *Config) {
			c.StoreDriver = StoreDriverMemory
			c.Environment = "production"
		}, wantErr: "not allowed in production"},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "weak production secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: "32 characters"},
		{name: "tiny body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, wantErr: "MAX_BODY_BYTES"},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimitPerMinute = 0 }, wantErr: "RATE_LIMIT_PER_MINUTE"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg := Load()
	if cfg.StoreDriver != StoreDriverMemory {
		t.Fatalf("expected memory driver, got %q", cfg.StoreDriver)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Fatalf("expected fallback rate limit, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("expected 3s shutdown timeout, got %v", cfg.ShutdownTimeout)
	}
	if cfg.RunMigrations {
		t.Fatal("expected migrations disabled")
	}
}
