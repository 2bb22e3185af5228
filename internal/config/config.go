package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/shortpost/internal/auth"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Token
	JWTSecret    string
	JWTExpiresIn string

	// Password
	BcryptCost int

	// Rate Limit
	RateLimitAuthPerWindow int
	RateLimitAPIPerWindow  int
	RateLimitWindow        time.Duration
	TrustProxy             bool // X-Forwarded-Forをクライアント識別に使うか（プロキシ配下のみ）

	// Server
	ServerPort string

	// Cookie / CSRF
	CSRFEnabled  bool
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string // カンマ区切りで複数指定可

	// RSS
	PublicBaseURL string // フィードのリンク先となるフロントエンドのURL
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.JWTSecret = getEnvString("JWT_SECRET", auth.DefaultSecret)
	cfg.JWTExpiresIn = getEnvString("JWT_EXPIRES_IN", auth.DefaultExpiresIn)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", auth.DefaultCost)
	cfg.RateLimitAuthPerWindow = getEnvInt("RATE_LIMIT_AUTH_PER_WINDOW", 5)
	cfg.RateLimitAPIPerWindow = getEnvInt("RATE_LIMIT_API_PER_WINDOW", 100)
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute)
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", false)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CSRFEnabled = getEnvBool("CSRF_ENABLED", false)
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", false)
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.PublicBaseURL = getEnvString("PUBLIC_BASE_URL", firstOrigin(cfg.CORSAllowedOrigin))

	return cfg, nil
}

// UsesDefaultJWTSecret は署名鍵が開発用のプレースホルダーのままかどうかを返す。
func (c *Config) UsesDefaultJWTSecret() bool {
	return c.JWTSecret == auth.DefaultSecret
}

// firstOrigin はカンマ区切りのオリジン一覧から先頭の要素を返す。
func firstOrigin(origins string) string {
	first, _, _ := strings.Cut(origins, ",")
	return strings.TrimRight(strings.TrimSpace(first), "/")
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

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
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
