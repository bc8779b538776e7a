package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Storage.Path != "data" {
		t.Errorf("Storage.Path default = %q, want %q", cfg.Storage.Path, "data")
	}
	if cfg.Reconcile.Tolerance != 1e-6 {
		t.Errorf("Reconcile.Tolerance default = %g, want %g", cfg.Reconcile.Tolerance, 1e-6)
	}
	if cfg.Reconcile.Concurrency != 4 {
		t.Errorf("Reconcile.Concurrency default = %d, want %d", cfg.Reconcile.Concurrency, 4)
	}
	if cfg.Provider.GetTimeout() != 30*time.Second {
		t.Errorf("Provider.GetTimeout() = %v, want %v", cfg.Provider.GetTimeout(), 30*time.Second)
	}
}

func TestConfig_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "histcache.toml")
	content := `
[storage]
path = "/var/cache/prices"

[reconcile]
concurrency = 8

[schedule]
cron = "0 0 19 * * 1-5"
symbols = ["AAPL", "MSFT"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Storage.Path != "/var/cache/prices" {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, "/var/cache/prices")
	}
	if cfg.Reconcile.Concurrency != 8 {
		t.Errorf("Reconcile.Concurrency = %d, want %d", cfg.Reconcile.Concurrency, 8)
	}
	if len(cfg.Schedule.Symbols) != 2 {
		t.Errorf("Schedule.Symbols = %v, want 2 entries", cfg.Schedule.Symbols)
	}
	// Unset fields keep their defaults.
	if cfg.Provider.RateLimit != 5 {
		t.Errorf("Provider.RateLimit = %d, want default %d", cfg.Provider.RateLimit, 5)
	}
}

func TestConfig_MissingFileSkipped(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Storage.Path != "data" {
		t.Errorf("Storage.Path = %q, want default %q", cfg.Storage.Path, "data")
	}
}

func TestConfig_DataPathEnvOverride(t *testing.T) {
	t.Setenv("HISTCACHE_DATA_PATH", "/tmp/override")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Storage.Path != "/tmp/override" {
		t.Errorf("Storage.Path = %q after env override, want %q", cfg.Storage.Path, "/tmp/override")
	}
}

func TestConfig_ConcurrencyEnvOverride(t *testing.T) {
	t.Setenv("HISTCACHE_CONCURRENCY", "16")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Reconcile.Concurrency != 16 {
		t.Errorf("Reconcile.Concurrency = %d after env override, want %d", cfg.Reconcile.Concurrency, 16)
	}
}

func TestConfig_InvalidConcurrencyEnvIgnored(t *testing.T) {
	t.Setenv("HISTCACHE_CONCURRENCY", "zero")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Reconcile.Concurrency != 4 {
		t.Errorf("Reconcile.Concurrency = %d, want default %d", cfg.Reconcile.Concurrency, 4)
	}
}

func TestConfig_ToleranceEnvOverride(t *testing.T) {
	t.Setenv("HISTCACHE_TOLERANCE", "0.001")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Reconcile.Tolerance != 0.001 {
		t.Errorf("Reconcile.Tolerance = %g after env override, want %g", cfg.Reconcile.Tolerance, 0.001)
	}
}

func TestConfig_GetTimeoutFallback(t *testing.T) {
	p := ProviderConfig{Timeout: "not-a-duration"}
	if p.GetTimeout() != 30*time.Second {
		t.Errorf("GetTimeout() = %v for invalid input, want %v", p.GetTimeout(), 30*time.Second)
	}
}
