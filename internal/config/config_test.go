package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if cfg.AuthURL != "http://localhost:8004" {
		t.Fatalf("unexpected default auth url %q", cfg.AuthURL)
	}
	if cfg.SweepInterval != 30*time.Second {
		t.Fatalf("unexpected default sweep interval %v", cfg.SweepInterval)
	}
	if cfg.Storage.Driver != "file" {
		t.Fatalf("unexpected default storage driver %q", cfg.Storage.Driver)
	}
}

func TestLoadFileParsesYAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`auth_url: http://auth.internal:9000
stock_url: http://stocks.internal:9001
sweep_interval: 45s
http_timeout: 5s
storage:
  driver: sqlite
  dir: /var/lib/stockdash
log_level: DEBUG
`)
	if err := os.WriteFile(path, body, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("STOCKDASH_STOCK_URL", "http://override:7000")
	t.Setenv("STOCKDASH_STORE_PASSPHRASE", "hunter2hunter2")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if cfg.AuthURL != "http://auth.internal:9000" {
		t.Fatalf("expected auth url from file, got %q", cfg.AuthURL)
	}
	if cfg.StockURL != "http://override:7000" {
		t.Fatalf("expected env to override stock url, got %q", cfg.StockURL)
	}
	if cfg.NewsURL != "http://localhost:8001" {
		t.Fatalf("expected default news url, got %q", cfg.NewsURL)
	}
	if cfg.SweepInterval != 45*time.Second || cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("durations not parsed: sweep=%v timeout=%v", cfg.SweepInterval, cfg.HTTPTimeout)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Dir != "/var/lib/stockdash" {
		t.Fatalf("storage not parsed: %+v", cfg.Storage)
	}
	if cfg.Storage.Passphrase != "hunter2hunter2" {
		t.Fatalf("expected passphrase from env")
	}
	if cfg.LogLevel != "DEBUG" {
		t.Fatalf("expected log level DEBUG, got %q", cfg.LogLevel)
	}
}

func TestSaveFileOmitsPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Storage.Passphrase = "do-not-write"
	cfg.NewsURL = "http://news:1234"

	if err := cfg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if strings.Contains(string(data), "do-not-write") {
		t.Fatalf("passphrase must not be persisted:\n%s", data)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if loaded.NewsURL != "http://news:1234" {
		t.Fatalf("expected news url to round-trip, got %q", loaded.NewsURL)
	}
	if loaded.SweepInterval != cfg.SweepInterval {
		t.Fatalf("expected sweep interval to round-trip, got %v", loaded.SweepInterval)
	}
}

func TestSaveFileKeepsEnvSecretsOffDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("auth_url: http://old:1\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("STOCKDASH_REDIS_PASSWORD", "s3cret-from-env")
	t.Setenv("STOCKDASH_STORAGE_DSN", "postgres://app:dsn-secret@db/stockdash")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if cfg.Storage.RedisPassword != "s3cret-from-env" || cfg.Storage.DSN == "" {
		t.Fatalf("expected secrets from env, got %+v", cfg.Storage)
	}

	cfg.AuthURL = "http://new:2"
	if err := cfg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	for _, secret := range []string{"s3cret-from-env", "dsn-secret"} {
		if strings.Contains(string(data), secret) {
			t.Fatalf("%q must not be persisted:\n%s", secret, data)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	names := cfg.Storage.Secrets()
	if len(names) != 2 || names[0] != "STOCKDASH_STORAGE_DSN" || names[1] != "STOCKDASH_REDIS_PASSWORD" {
		t.Fatalf("unexpected secret names %v", names)
	}
}
