package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Keep godotenv away from any real .env in the working directory.
	t.Setenv("MSE_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:8510" {
		t.Fatalf("listen addr = %q, want loopback default", cfg.ListenAddr)
	}
	if cfg.RemoteTimeout != 10*time.Second {
		t.Fatalf("remote timeout = %v, want 10s", cfg.RemoteTimeout)
	}
	if cfg.SiteConcurrency != 5 {
		t.Fatalf("site concurrency = %d, want 5", cfg.SiteConcurrency)
	}
	if cfg.DatabasePath() != filepath.Join(cfg.DataDir, "assessments.db") {
		t.Fatalf("database path = %q", cfg.DatabasePath())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MSE_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("MSE_LISTEN_ADDR", "0.0.0.0:9000")
	t.Setenv("MSE_REMOTE_TIMEOUT", "30s")
	t.Setenv("MSE_SITE_CONCURRENCY", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.RemoteTimeout != 30*time.Second {
		t.Fatalf("remote timeout = %v", cfg.RemoteTimeout)
	}
	if cfg.SiteConcurrency != 12 {
		t.Fatalf("site concurrency = %d", cfg.SiteConcurrency)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "backend.env")
	contents := "MSE_LISTEN_ADDR=127.0.0.1:8600\nMSE_LOG_LEVEL=debug\n"
	if err := os.WriteFile(envFile, []byte(contents), 0600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("MSE_ENV_FILE", envFile)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:8600" {
		t.Fatalf("listen addr = %q, want value from env file", cfg.ListenAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("MSE_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("MSE_REMOTE_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("bad timeout accepted")
	}

	t.Setenv("MSE_REMOTE_TIMEOUT", "")
	t.Setenv("MSE_SITE_CONCURRENCY", "0")
	if _, err := Load(); err == nil {
		t.Fatal("zero concurrency accepted")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		ListenAddr:      "127.0.0.1:8510",
		DataDir:         "/tmp/mse",
		RemoteTimeout:   time.Second,
		SiteConcurrency: 1,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	broken := valid
	broken.ListenAddr = " "
	if err := broken.Validate(); err == nil {
		t.Fatal("blank listen addr accepted")
	}

	broken = valid
	broken.RemoteTimeout = 0
	if err := broken.Validate(); err == nil {
		t.Fatal("zero timeout accepted")
	}
}

func TestProvider_SwapReplacesAtomically(t *testing.T) {
	initial := &Config{ListenAddr: "127.0.0.1:8510", DataDir: "/tmp/a", RemoteTimeout: time.Second, SiteConcurrency: 1}
	provider := NewProvider(initial)

	if provider.Current() != initial {
		t.Fatal("Current did not return the initial config")
	}

	replacement := &Config{ListenAddr: "127.0.0.1:8511", DataDir: "/tmp/b", RemoteTimeout: time.Second, SiteConcurrency: 2}
	provider.Swap(replacement)

	if provider.Current() != replacement {
		t.Fatal("Swap did not replace the active config")
	}
	if initial.ListenAddr != "127.0.0.1:8510" {
		t.Fatal("Swap mutated the previous config")
	}
}
