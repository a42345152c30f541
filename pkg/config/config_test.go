package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvAPITimeout, "20s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.API.BaseURL != "https://api.example.test/api/v1" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 20*time.Second {
		t.Fatalf("expected 20s timeout, got %v", cfg.API.Timeout)
	}
	if cfg.Branch.DefaultCode != "BAN" {
		t.Fatalf("expected default branch BAN, got %q", cfg.Branch.DefaultCode)
	}
	if cfg.Store.Driver != StoreDriverSQLite {
		t.Fatalf("expected sqlite store, got %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN != "file:eltafawook-admin.db?_foreign_keys=on" {
		t.Fatalf("unexpected sqlite dsn %q", cfg.Store.DSN)
	}
	if cfg.Redis.Enabled() {
		t.Fatalf("redis should be disabled without url/address")
	}
}

func TestLoad_BindsLoopbackByDefault(t *testing.T) {
	setMinimalEnv(t)
	unsetEnv(t, EnvHost)
	unsetEnv(t, EnvPort)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if got := cfg.App.Addr(); got != "127.0.0.1:8088" {
		t.Fatalf("expected loopback listen address, got %q", got)
	}

	t.Setenv(EnvHost, "0.0.0.0")
	t.Setenv(EnvPort, "9000")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if got := cfg.App.Addr(); got != "0.0.0.0:9000" {
		t.Fatalf("unexpected listen address %q", got)
	}
}

func TestLoad_MissingBaseURL(t *testing.T) {
	t.Setenv(EnvAPIBaseURL, "")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing base url to return an error")
	}
}

func TestLoad_RejectsNonHTTPBaseURL(t *testing.T) {
	t.Setenv(EnvAPIBaseURL, "ftp://api.example.test")
	if _, err := Load(); err == nil {
		t.Fatal("expected non-http base url to be rejected")
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStoreDriver, "postgres")
	t.Setenv(EnvStoreDSN, "")
	if _, err := Load(); err == nil {
		t.Fatal("expected postgres without dsn to fail")
	}

	t.Setenv(EnvStoreDSN, "postgres://u:p@localhost:5432/admin?sslmode=disable")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Driver != StoreDriverPostgres {
		t.Fatalf("unexpected driver %q", cfg.Store.Driver)
	}
}

func TestLoad_RedisEnabled(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Redis.Enabled() {
		t.Fatalf("expected redis to be enabled")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "dev")
	t.Setenv(EnvAPIBaseURL, "https://api.example.test/api/v1")
	t.Setenv(EnvStoreDriver, "")
	t.Setenv(EnvStoreDSN, "")
	t.Setenv(EnvRedisURL, "")
	t.Setenv(EnvRedisAddr, "")
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}
