package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// ランタイムでの再読み込みは行わない。
type Config struct {
	// Supabase
	SupabaseURL         string
	SupabaseKey         string
	SupabaseServiceRole string
	SupabaseJWTSecret   string

	// Upstream HTTP
	UpstreamTimeout time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitCreate  int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigins []string
}

// defaultCORSOrigins はローカル開発用フロントエンドの固定許可リスト。
var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:3001",
	"http://localhost:8000",
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.SupabaseURL = os.Getenv("SUPABASE_URL")
	if cfg.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}

	cfg.SupabaseKey = os.Getenv("SUPABASE_KEY")
	if cfg.SupabaseKey == "" {
		missing = append(missing, "SUPABASE_KEY")
	}

	cfg.SupabaseServiceRole = os.Getenv("SUPABASE_SERVICE_ROLE")
	if cfg.SupabaseServiceRole == "" {
		missing = append(missing, "SUPABASE_SERVICE_ROLE")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// SUPABASE_JWT_SECRETは任意。未設定の場合はローカル署名検証をスキップし、
	// トークン検証は認証基盤への問い合わせのみで行う。
	cfg.SupabaseJWTSecret = os.Getenv("SUPABASE_JWT_SECRET")

	// Optional fields with defaults
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCreate = getEnvInt("RATE_LIMIT_CREATE", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", defaultCORSOrigins)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
