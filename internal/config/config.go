package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Authentication mode constants
const (
	AuthModeLocal   = "local"
	AuthModeHTTPAPI = "http_api"
)

// Store driver constants
const (
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// Skill linking
	// SkillRedirectURL is the fixed third-party callback the login handler
	// redirects to with ?state=...&code=... after a successful login.
	SkillRedirectURL string

	// Token lifetimes. AccessTokenTTL is the nominal lifetime reported as
	// expires_in and, when non-zero, enforced on presented tokens. Zero
	// disables enforcement and reproduces the legacy no-expiry behavior.
	AccessTokenTTL time.Duration
	AuthCodeTTL    time.Duration

	// Store
	StoreDriver    string // "redis" or "memory"
	StoreNamespace string
	StoreTimeout   time.Duration

	// Redis (store and distributed rate limiting)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Authentication
	AuthMode string // "local" or "http_api"

	// HTTP API Authentication (external identity provider)
	HTTPAPIURL                string
	HTTPAPITimeout            time.Duration
	HTTPAPIInsecureSkipVerify bool
	HTTPAPIAuthMode           string // "none", "simple", or "hmac"
	HTTPAPIAuthSecret         string
	HTTPAPIAuthHeader         string
	HTTPAPIMaxRetries         int
	HTTPAPIRetryDelay         time.Duration
	HTTPAPIMaxRetryDelay      time.Duration

	// Rate limiting
	EnableRateLimit          bool
	RateLimitStore           string // "memory" or "redis"
	RateLimitCleanupInterval time.Duration
	LoginRateLimit           int // requests per minute on POST /
	TokenRateLimit           int // requests per minute on POST /access-token

	// Metrics
	MetricsEnabled bool
	MetricsToken   string
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		IsProduction: getEnvBool("PRODUCTION", false),

		SkillRedirectURL: getEnv(
			"SKILL_REDIRECT_URL",
			"https://layla.amazon.com/api/skill/link/M28J7ZKDG13G8U",
		),

		AccessTokenTTL: getEnvDuration("ACCESS_TOKEN_TTL", time.Hour),
		AuthCodeTTL:    getEnvDuration("AUTH_CODE_TTL", 10*time.Minute),

		StoreDriver:    getEnv("STORE_DRIVER", StoreDriverRedis),
		StoreNamespace: getEnv("STORE_NAMESPACE", "homelink"),
		StoreTimeout:   getEnvDuration("STORE_TIMEOUT", 5*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AuthMode: getEnv("AUTH_MODE", AuthModeLocal),

		HTTPAPIURL:                getEnv("HTTP_API_URL", ""),
		HTTPAPITimeout:            getEnvDuration("HTTP_API_TIMEOUT", 10*time.Second),
		HTTPAPIInsecureSkipVerify: getEnvBool("HTTP_API_INSECURE_SKIP_VERIFY", false),
		HTTPAPIAuthMode:           getEnv("HTTP_API_AUTH_MODE", "none"),
		HTTPAPIAuthSecret:         getEnv("HTTP_API_AUTH_SECRET", ""),
		HTTPAPIAuthHeader:         getEnv("HTTP_API_AUTH_HEADER", "X-API-Secret"),
		HTTPAPIMaxRetries:         getEnvInt("HTTP_API_MAX_RETRIES", 3),
		HTTPAPIRetryDelay:         getEnvDuration("HTTP_API_RETRY_DELAY", 1*time.Second),
		HTTPAPIMaxRetryDelay:      getEnvDuration("HTTP_API_MAX_RETRY_DELAY", 10*time.Second),

		EnableRateLimit:          getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:           getEnv("RATE_LIMIT_STORE", "memory"),
		RateLimitCleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		LoginRateLimit:           getEnvInt("LOGIN_RATE_LIMIT", 10),
		TokenRateLimit:           getEnvInt("TOKEN_RATE_LIMIT", 30),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),
	}
}

// Validate checks configuration consistency before the server starts.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverRedis, StoreDriverMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER: %s (must be: redis, memory)", c.StoreDriver)
	}

	switch c.AuthMode {
	case AuthModeLocal:
	case AuthModeHTTPAPI:
		if c.HTTPAPIURL == "" {
			return fmt.Errorf("HTTP_API_URL is required when AUTH_MODE=%s", AuthModeHTTPAPI)
		}
	default:
		return fmt.Errorf("invalid AUTH_MODE: %s (must be: local, http_api)", c.AuthMode)
	}

	if c.SkillRedirectURL == "" {
		return fmt.Errorf("SKILL_REDIRECT_URL must not be empty")
	}
	if c.AccessTokenTTL < 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must not be negative")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	return nil
}

// ExpiresIn is the nominal access-token lifetime in seconds communicated to
// the skill on every token response. Falls back to one hour when expiry
// enforcement is disabled, matching the legacy behavior of always reporting
// expires_in: 3600.
func (c *Config) ExpiresIn() int {
	if c.AccessTokenTTL <= 0 {
		return int(time.Hour.Seconds())
	}
	return int(c.AccessTokenTTL.Seconds())
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
