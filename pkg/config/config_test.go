package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
environment: test
server:
  port: 8080
store:
  path: bridge.db
bridge:
  lease_timeout: 30s
  max_batch_size: 10
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "test" {
		t.Fatalf("unexpected environment %q", cfg.Environment)
	}
	if cfg.Store.Path != "bridge.db" {
		t.Fatalf("unexpected store path %q", cfg.Store.Path)
	}
	if cfg.Bridge.LeaseTimeout != 30*time.Second {
		t.Fatalf("unexpected lease timeout %v", cfg.Bridge.LeaseTimeout)
	}
}

func TestLoadMissingStorePath(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadKafkaEnabledNeedsBrokers(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
kafka:
  enabled: true
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for missing brokers")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	t.Setenv("STORE_PATH", "/tmp/override.db")
	t.Setenv("RELAY_URL", "ws://relay:9001/stream")

	cfg, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Path != "/tmp/override.db" {
		t.Fatalf("env override not applied: %q", cfg.Store.Path)
	}
	if !cfg.Relay.Enabled || cfg.Relay.URL != "ws://relay:9001/stream" {
		t.Fatalf("relay override not applied: %+v", cfg.Relay)
	}
}
