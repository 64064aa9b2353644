package daemon

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("GITGUD_HOME", t.TempDir())
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8787 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8787)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DriverSQLite)
	}
	if cfg.Ledger.DiminishingReturns {
		t.Error("DiminishingReturns should default to off")
	}
	if !cfg.Auth.AutoProvision {
		t.Error("AutoProvision should default to on")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GITGUD_HOME", home)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Storage.Dir != home {
		t.Errorf("Storage.Dir = %q, want %q", cfg.Storage.Dir, home)
	}
}

func TestSaveLoadConfig(t *testing.T) {
	t.Setenv("GITGUD_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.API.Port = 9999
	cfg.Ledger.DiminishingReturns = true
	cfg.Logging.Format = "json"
	cfg.Storage.Postgres.MaxConns = 25
	cfg.Storage.Postgres.MinConns = 2
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got.API.Port != 9999 || !got.Ledger.DiminishingReturns || got.Logging.Format != "json" {
		t.Errorf("round trip = %+v", got)
	}
	if got.Storage.Postgres.MaxConns != 25 || got.Storage.Postgres.MinConns != 2 {
		t.Errorf("postgres pool = %+v", got.Storage.Postgres)
	}
}

func TestOpenStore_SQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig().Storage
	cfg.Dir = dir

	store, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenStore() error: %v", err)
	}
	defer store.Close()
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := DefaultConfig().Storage
	cfg.Driver = "mysql"
	if _, err := OpenStore(context.Background(), cfg); err == nil {
		t.Error("OpenStore() should reject an unknown driver")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GITGUD_HOME", t.TempDir())
	t.Setenv("GITGUD_JWT_SECRET", "s3cret")
	t.Setenv("GITGUD_DATABASE_URL", "postgres://localhost/gitgud")
	t.Setenv("GITGUD_PORT", "9090")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Storage.Driver != DriverPostgres || cfg.Storage.Postgres.DSN != "postgres://localhost/gitgud" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("Port = %d", cfg.API.Port)
	}
}

func TestLoadConfig_BadFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GITGUD_HOME", home)
	os.WriteFile(filepath.Join(home, "config.toml"), []byte("[api\nport ="), 0o600)

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() should fail on malformed toml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }},
		{"bad port", func(c *Config) { c.API.Port = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	log.Info("hidden")
	log.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line written at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("json output = %q", out)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"", time.Minute},
		{"soon", time.Minute},
		{"-5s", time.Minute},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.input, time.Minute); got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewWithConfig_SQLite(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GITGUD_HOME", home)

	cfg := DefaultConfig()
	cfg.Auth.JWTSecret = "test"
	d, err := NewWithConfig(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewWithConfig() error: %v", err)
	}
	defer d.Close()

	if d.Ledger == nil || d.Server == nil || d.Health == nil {
		t.Fatal("daemon not fully wired")
	}
	if err := d.Health.Ping(context.Background()); err != nil {
		t.Errorf("health = %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "gitgud.db")); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestNewWithConfig_RequiresSecret(t *testing.T) {
	t.Setenv("GITGUD_HOME", t.TempDir())
	if _, err := NewWithConfig(context.Background(), DefaultConfig(), nil); err == nil {
		t.Error("NewWithConfig() should fail without a jwt secret")
	}
}
