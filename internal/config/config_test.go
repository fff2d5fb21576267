package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 5m
game:
  max_rounds: 5
  categories: [budgeting, taxes]
log:
  level: DEBUG
  format: yaml
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected server/redis config %+v", cfg)
	}
	if cfg.Game.MaxRounds != 5 || cfg.Game.RoundSeconds != 60 || cfg.Game.PointsPerRound != 10 || cfg.Game.PerfectSeconds != 30 {
		t.Fatalf("unexpected game config %+v", cfg.Game)
	}
	if len(cfg.Game.Categories) != 2 || cfg.Game.Categories[1] != "taxes" {
		t.Fatalf("unexpected categories %v", cfg.Game.Categories)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for invalid input, got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
}
