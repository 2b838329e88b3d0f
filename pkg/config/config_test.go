package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections != 1000 {
		t.Errorf("Expected max connections 1000, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("Expected request timeout 30s, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.EnableTLS {
		t.Error("Expected TLS disabled by default")
	}

	if cfg.Engine.DefaultMetric != "l2norm" {
		t.Errorf("Expected default metric l2norm, got %s", cfg.Engine.DefaultMetric)
	}
	if cfg.Engine.DefaultInitMethod != "kmeans++" {
		t.Errorf("Expected default init method kmeans++, got %s", cfg.Engine.DefaultInitMethod)
	}
	if cfg.Engine.DefaultMaxIter != 20 {
		t.Errorf("Expected default max iter 20, got %d", cfg.Engine.DefaultMaxIter)
	}

	if !cfg.Cache.Enabled {
		t.Error("Expected cache enabled by default")
	}
	if cfg.Cache.Capacity != 1000 {
		t.Errorf("Expected cache capacity 1000, got %d", cfg.Cache.Capacity)
	}

	if cfg.Storage.Backend != "badger" {
		t.Errorf("Expected default storage backend badger, got %s", cfg.Storage.Backend)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid port")
	}
}

func TestValidateRejectsTLSWithoutCerts(t *testing.T) {
	cfg := Default()
	cfg.Server.EnableTLS = true
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for TLS enabled without cert/key files")
	}
}

func TestValidateRejectsBadSampleFrac(t *testing.T) {
	cfg := Default()
	cfg.Engine.DefaultSampleFrac = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for sample frac outside (0,1]")
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "not-a-backend"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown storage backend")
	}
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	os.Setenv("KMEANS_SERVER_PORT", "9090")
	os.Setenv("KMEANS_STORAGE_BACKEND", "qdrant")
	t.Cleanup(func() {
		os.Unsetenv("KMEANS_SERVER_PORT")
		os.Unsetenv("KMEANS_STORAGE_BACKEND")
	})

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port overridden to 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "qdrant" {
		t.Errorf("expected backend overridden to qdrant, got %s", cfg.Storage.Backend)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kmeans.yaml")
	contents := "server:\n  port: 7777\nengine:\n  default_metric: cosine\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("expected port 7777 from file, got %d", cfg.Server.Port)
	}
	if cfg.Engine.DefaultMetric != "cosine" {
		t.Errorf("expected default metric cosine from file, got %s", cfg.Engine.DefaultMetric)
	}
	// Fields untouched by the file should still carry their defaults.
	if cfg.Storage.Backend != "badger" {
		t.Errorf("expected default storage backend to survive, got %s", cfg.Storage.Backend)
	}
}

func TestAddressFormatsHostPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8080
	if got := cfg.Server.Address(); got != "127.0.0.1:8080" {
		t.Errorf("Address() = %q, want %q", got, "127.0.0.1:8080")
	}
}
