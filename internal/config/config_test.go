package config

import (
	"strings"
	"testing"
	"time"
)

// setRequiredEnv は必須環境変数をすべて設定する。
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_KEY", "public-anon-key")
	t.Setenv("SUPABASE_SERVICE_ROLE", "service-role-key")
}

func TestLoad_AllRequiredSet(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.SupabaseURL != "https://example.supabase.co" {
		t.Errorf("SupabaseURL = %q", cfg.SupabaseURL)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want default 8080", cfg.ServerPort)
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Errorf("UpstreamTimeout = %v, want 10s", cfg.UpstreamTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 5 {
		t.Errorf("CORSAllowedOrigins = %v, want 5 default local origins", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_MissingRequired_ListsAllMissingVars(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_KEY", "")
	t.Setenv("SUPABASE_SERVICE_ROLE", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when required vars are missing")
	}

	for _, name := range []string{"SUPABASE_URL", "SUPABASE_KEY", "SUPABASE_SERVICE_ROLE"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q should mention %s", err.Error(), name)
		}
	}
}

func TestLoad_JWTSecretIsOptional(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SUPABASE_JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SupabaseJWTSecret != "" {
		t.Errorf("SupabaseJWTSecret = %q, want empty", cfg.SupabaseJWTSecret)
	}
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_GENERAL", "60")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://bookswap.example.com, https://staging.bookswap.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.UpstreamTimeout != 3*time.Second {
		t.Errorf("UpstreamTimeout = %v, want 3s", cfg.UpstreamTimeout)
	}
	if cfg.RateLimitGeneral != 60 {
		t.Errorf("RateLimitGeneral = %d, want 60", cfg.RateLimitGeneral)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != "https://bookswap.example.com" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_InvalidOptionalFallsBackToDefault(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_LIMIT_GENERAL", "not-a-number")
	t.Setenv("UPSTREAM_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want default 120", cfg.RateLimitGeneral)
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Errorf("UpstreamTimeout = %v, want default 10s", cfg.UpstreamTimeout)
	}
}
