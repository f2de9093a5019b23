//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 0\n")

	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.RateLimit.MaxRequests != 20 || cfg.RateLimit.Window.Std() != time.Hour {
		t.Errorf("rate limit = %d/%v, want 20/1h", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	}
	if cfg.Cache.TTL.Std() != time.Hour {
		t.Errorf("cache ttl = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.Delay.Std() != time.Second || cfg.Retry.BackoffMultiplier != 2 {
		t.Errorf("retry = %+v, want 3/1s/2", cfg.Retry)
	}
	if cfg.AI.DefaultModel != "gemini-2.5-flash" {
		t.Errorf("model = %s, want gemini-2.5-flash", cfg.AI.DefaultModel)
	}
	if !cfg.Runtime.Dev {
		t.Error("dev flag must be carried into runtime config")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
rate_limit:
  max_requests: 50
  window: 30m
cache:
  ttl: 15m
  max_entries: 64
retry:
  max_attempts: 5
`)

	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.RateLimit.MaxRequests != 50 || cfg.RateLimit.Window.Std() != 30*time.Minute {
		t.Errorf("rate limit = %d/%v", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	}
	if cfg.Cache.MaxEntries != 64 {
		t.Errorf("max entries = %d, want 64", cfg.Cache.MaxEntries)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("max attempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
}

func TestLoadConfigProdValidation(t *testing.T) {
	t.Run("requires database url", func(t *testing.T) {
		path := writeConfig(t, "auth:\n  jwt_secret: s\nai:\n  gemini_key: k\n")
		if _, err := LoadConfig(path, false); err == nil {
			t.Error("expected error for missing database.url")
		}
	})

	t.Run("requires an AI key", func(t *testing.T) {
		path := writeConfig(t, "database:\n  url: postgres://x\nauth:\n  jwt_secret: s\n")
		if _, err := LoadConfig(path, false); err == nil {
			t.Error("expected error for missing AI key")
		}
	})

	t.Run("accepts a complete prod config", func(t *testing.T) {
		path := writeConfig(t, `
database:
  url: postgres://localhost/app
auth:
  jwt_secret: secret
ai:
  gemini_key: key
`)
		if _, err := LoadConfig(path, false); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml", true); err == nil {
		t.Error("expected error for missing file")
	}
}
