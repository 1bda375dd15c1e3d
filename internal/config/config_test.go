package config

import (
	"testing"
	"time"

	"github.com/pmohq/pmo-api/internal/auth"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PMO_AUTH_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr)
	}
	if cfg.TokenTTL != auth.DefaultTokenTTL {
		t.Fatalf("unexpected ttl %v", cfg.TokenTTL)
	}
	if cfg.LockoutThreshold != auth.DefaultLockoutThreshold || cfg.LockoutDuration != auth.DefaultLockoutDuration {
		t.Fatalf("unexpected lockout defaults %d %v", cfg.LockoutThreshold, cfg.LockoutDuration)
	}
	if cfg.DefaultRole != "viewer" {
		t.Fatalf("unexpected default role %q", cfg.DefaultRole)
	}
	if cfg.AllowedDomains != nil {
		t.Fatalf("expected unrestricted domains, got %v", cfg.AllowedDomains)
	}
	if cfg.AutoMigrate {
		t.Fatalf("expected auto-migrate off by default")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("PMO_AUTH_SECRET", "   ")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without secret")
	}
}

func TestLoadOverridesAndFallbacks(t *testing.T) {
	t.Setenv("PMO_AUTH_SECRET", "s3cret")
	t.Setenv("PMO_HTTP_ADDR", ":9090")
	t.Setenv("PMO_TOKEN_TTL", "30m")
	t.Setenv("PMO_LOCKOUT_THRESHOLD", "3")
	t.Setenv("PMO_LOCKOUT_DURATION", "not-a-duration")
	t.Setenv("PMO_ALLOWED_DOMAINS", " Agency.gov.ph , edu.ph ,")
	t.Setenv("PMO_AUTO_MIGRATE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("unexpected ttl %v", cfg.TokenTTL)
	}
	if cfg.LockoutThreshold != 3 {
		t.Fatalf("unexpected threshold %d", cfg.LockoutThreshold)
	}
	// Bad duration falls back, it does not fail the load.
	if cfg.LockoutDuration != auth.DefaultLockoutDuration {
		t.Fatalf("unexpected lockout duration %v", cfg.LockoutDuration)
	}
	if len(cfg.AllowedDomains) != 2 || cfg.AllowedDomains[0] != "agency.gov.ph" || cfg.AllowedDomains[1] != "edu.ph" {
		t.Fatalf("unexpected domains %v", cfg.AllowedDomains)
	}
	if !cfg.AutoMigrate {
		t.Fatalf("expected auto-migrate enabled")
	}
}
