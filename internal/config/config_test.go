package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("QUIZ_JWT_SECRET", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 5m
quiz:
  maxTimeSeconds: 240
  tickInterval: 500ms
  file: config/quizzes.yaml
auth:
  jwtSecret: ${QUIZ_JWT_SECRET}
profile:
  retries: 2
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Quiz.MaxTimeSeconds != 240 || cfg.Quiz.File != "config/quizzes.yaml" || cfg.Profile.Retries != 2 {
		t.Fatalf("unexpected quiz/profile config %+v", cfg)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("expected env expansion, got %q", cfg.Auth.JWTSecret)
	}
	if d := TTLDuration(cfg.Quiz.TickInterval, time.Second); d != 500*time.Millisecond {
		t.Fatalf("unexpected tick interval %v", d)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if d := TTLDuration("", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback, got %v", d)
	}
	if d := TTLDuration("soon", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback on bad input, got %v", d)
	}
}
