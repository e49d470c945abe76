package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
  allowed_origins: ["http://projector.local"]
redis:
  addr: localhost:6379
  session_ttl: 1h
admin:
  names: [host, admin]
  passcode: letmein
seed: true
watch:
  poll_interval: 2s
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || len(cfg.Server.AllowedOrigins) != 1 {
		t.Fatalf("unexpected server section %+v", cfg.Server)
	}
	if cfg.Redis.Addr != "localhost:6379" || TTLDuration(cfg.Redis.SessionTTL, 0) != time.Hour {
		t.Fatalf("unexpected redis section %+v", cfg.Redis)
	}
	if len(cfg.Admin.Names) != 2 || cfg.Admin.Passcode != "letmein" || !cfg.Seed {
		t.Fatalf("unexpected admin/seed %+v %v", cfg.Admin, cfg.Seed)
	}
	if TTLDuration(cfg.Watch.PollInterval, time.Minute) != 2*time.Second {
		t.Fatalf("unexpected poll interval %q", cfg.Watch.PollInterval)
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Port != "" {
		t.Fatalf("expected zero config")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if d := TTLDuration("", 3*time.Second); d != 3*time.Second {
		t.Fatalf("expected fallback for empty, got %v", d)
	}
	if d := TTLDuration("soon", 3*time.Second); d != 3*time.Second {
		t.Fatalf("expected fallback for garbage, got %v", d)
	}
}
