// Package config loads service configuration from the environment, with a
// best-effort .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pmohq/pmo-api/internal/auth"
)

// Config carries every recognized option.
type Config struct {
	HTTPAddr    string
	PGDSN       string
	AutoMigrate bool

	AuthSecret string
	TokenTTL   time.Duration

	LockoutThreshold int
	LockoutDuration  time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// AllowedDomains restricts SSO logins; empty means unrestricted.
	AllowedDomains []string
	DefaultRole    string
	FrontendURL    string
}

// Load reads configuration. A missing .env file is not an error; parse
// failures on numeric values fall back to defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:           getenv("PMO_HTTP_ADDR", ":8080"),
		PGDSN:              os.Getenv("PMO_PG_DSN"),
		AutoMigrate:        getBool("PMO_AUTO_MIGRATE"),
		AuthSecret:         os.Getenv("PMO_AUTH_SECRET"),
		TokenTTL:           getDuration("PMO_TOKEN_TTL", auth.DefaultTokenTTL),
		LockoutThreshold:   getInt("PMO_LOCKOUT_THRESHOLD", auth.DefaultLockoutThreshold),
		LockoutDuration:    getDuration("PMO_LOCKOUT_DURATION", auth.DefaultLockoutDuration),
		GoogleClientID:     os.Getenv("PMO_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("PMO_GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("PMO_GOOGLE_REDIRECT_URL"),
		AllowedDomains:     splitList(os.Getenv("PMO_ALLOWED_DOMAINS")),
		DefaultRole:        getenv("PMO_DEFAULT_ROLE", "viewer"),
		FrontendURL:        getenv("PMO_FRONTEND_URL", "http://localhost:5173"),
	}
	if strings.TrimSpace(cfg.AuthSecret) == "" {
		return Config{}, fmt.Errorf("PMO_AUTH_SECRET is required")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return def
	}
	return i
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
