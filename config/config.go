package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RateLimitBucket holds the limit and window for one endpoint class.
type RateLimitBucket struct {
	Limit  int
	Window time.Duration
}

// Config is the full read-only configuration surface, built once in main
// and injected into the components that need it.
type Config struct {
	Port string

	// Database
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis (optional; empty addr means local-only backends)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Token issuance
	PrivateKeyPath string
	PublicKeyPath  string
	TokenIssuer    string
	TokenAudience  string
	TokenLifetime  time.Duration

	// Admin API keys (exact match, checked before any tenant lookup)
	AdminAPIKeys []string

	// Permission cache
	PermissionCacheTTL time.Duration

	// Rate limiting
	RateLimitEnabled bool
	Whitelist        []string
	DefaultBucket    RateLimitBucket
	AuthBucket       RateLimitBucket
	RegisterBucket   RateLimitBucket
	PasswordBucket   RateLimitBucket

	AllowedOrigins string
}

// Load reads .env (when present) and builds the Config from environment
// variables with defaults suitable for local development.
func Load() *Config {
	// Missing .env is fine in containerized deployments.
	_ = godotenv.Load()

	return &Config{
		Port: envStr("PORT", "8080"),

		DBHost:     envStr("DB_HOST", "db"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		PrivateKeyPath: os.Getenv("JWT_PRIVATE_KEY_PATH"),
		PublicKeyPath:  os.Getenv("JWT_PUBLIC_KEY_PATH"),
		TokenIssuer:    envStr("JWT_ISSUER", "accessgate"),
		TokenAudience:  envStr("JWT_AUDIENCE", "accessgate-clients"),
		TokenLifetime:  envDuration("JWT_LIFETIME_MINUTES", 15*time.Minute),

		AdminAPIKeys: envCSV("ADMIN_API_KEYS"),

		PermissionCacheTTL: envDuration("PERMISSION_CACHE_TTL_MINUTES", 15*time.Minute),

		RateLimitEnabled: envBool("RATE_LIMIT_ENABLED", true),
		Whitelist:        envCSV("RATE_LIMIT_WHITELIST"),
		DefaultBucket: RateLimitBucket{
			Limit:  envInt("RATE_LIMIT_MAX", 60),
			Window: time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		},
		AuthBucket: RateLimitBucket{
			Limit:  envInt("RATE_LIMIT_AUTH_MAX", 10),
			Window: time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		},
		// Registration and password reset always use a one-hour window.
		RegisterBucket: RateLimitBucket{
			Limit:  envInt("RATE_LIMIT_REGISTER_MAX", 5),
			Window: time.Hour,
		},
		PasswordBucket: RateLimitBucket{
			Limit:  envInt("RATE_LIMIT_PASSWORD_RESET_MAX", 3),
			Window: time.Hour,
		},

		AllowedOrigins: envStr("ALLOWED_ORIGINS", "*"),
	}
}

// IsAdminKey reports whether key exactly matches a configured admin key.
func (c *Config) IsAdminKey(key string) bool {
	for _, k := range c.AdminAPIKeys {
		if k == key {
			return true
		}
	}
	return false
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return def
}

func envCSV(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
