package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	Env       string
	Port      string
	LogLevel  string
	LogFormat string

	SessionSecret string
	EncryptionKey string
	SessionTTL    time.Duration

	DatabaseURL string
	RedisURL    string

	// Content API (posts, authentication, permissions)
	ContentAPIURL      string
	ContentAPIUsername string
	ContentAPIPassword string
	HTTPTimeout        time.Duration

	// Reference search
	EmbeddingsAPIURL  string
	SearchBackend     string
	MeilisearchHost   string
	MeilisearchAPIKey string
	MeilisearchIndex  string
	CacheTTL          time.Duration
	IndexSyncSchedule string

	// Language model
	LLMProvider  string
	LLMModel     string
	LLMAPIKey    string
	LLMBaseURL   string
	LLMMaxTokens int

	// Approval workflow
	ApprovalTransport     string
	ApprovalWebhookURL    string
	ApprovalWebhookSecret string
	ApprovalStubMode      bool
}

// Load reads configuration from environment variables. A .env file in the
// working directory is honoured when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: failed to load .env file: %v", err)
	}

	contentURL := strings.TrimRight(getEnvWithDefault("CONTENT_API_URL", "http://127.0.0.1:8005/api/v1"), "/")

	cfg := &Config{
		Env:       getEnvWithDefault("ENV", "development"),
		Port:      getEnvWithDefault("PORT", "8080"),
		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		EncryptionKey: os.Getenv("ENCRYPTION_KEY"),
		SessionTTL:    getDurationWithDefault("SESSION_TTL", 24*time.Hour),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),

		ContentAPIURL:      contentURL,
		ContentAPIUsername: os.Getenv("CONTENT_API_USERNAME"),
		ContentAPIPassword: os.Getenv("CONTENT_API_PASSWORD"),
		HTTPTimeout:        getDurationWithDefault("HTTP_TIMEOUT", 30*time.Second),

		EmbeddingsAPIURL:  strings.TrimRight(getEnvWithDefault("EMBEDDINGS_API_URL", contentURL), "/"),
		SearchBackend:     strings.ToLower(getEnvWithDefault("SEARCH_BACKEND", "api")),
		MeilisearchHost:   os.Getenv("MEILISEARCH_HOST"),
		MeilisearchAPIKey: os.Getenv("MEILISEARCH_API_KEY"),
		MeilisearchIndex:  getEnvWithDefault("MEILISEARCH_INDEX", "unipost_content"),
		CacheTTL:          getDurationWithDefault("CACHE_TTL", 24*time.Hour),
		IndexSyncSchedule: getEnvWithDefault("INDEX_SYNC_SCHEDULE", "@every 6h"),

		LLMProvider:  strings.ToLower(getEnvWithDefault("LLM_PROVIDER", "openai")),
		LLMModel:     getEnvWithDefault("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:    os.Getenv("LLM_API_KEY"),
		LLMBaseURL:   os.Getenv("LLM_BASE_URL"),
		LLMMaxTokens: getIntWithDefault("LLM_MAX_TOKENS", 1000),

		ApprovalTransport:     strings.ToLower(getEnvWithDefault("APPROVAL_TRANSPORT", "webhook")),
		ApprovalWebhookURL:    strings.TrimRight(os.Getenv("APPROVAL_WEBHOOK_URL"), "/"),
		ApprovalWebhookSecret: os.Getenv("APPROVAL_WEBHOOK_SECRET"),
		ApprovalStubMode:      getBoolWithDefault("APPROVAL_STUB_MODE", false),
	}

	// Warn if using default session secret (insecure for production)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"
		log.Println("WARNING: Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	if cfg.ApprovalWebhookURL == "" && cfg.ApprovalTransport == "webhook" && !cfg.ApprovalStubMode {
		log.Println("WARNING: APPROVAL_WEBHOOK_URL not set, approval dispatch runs in stub mode")
		cfg.ApprovalStubMode = true
	}

	return cfg
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("WARNING: invalid integer for %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("WARNING: invalid boolean for %s=%q, using %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

// getDurationWithDefault accepts Go duration strings ("90s", "24h") or a
// plain number of seconds.
func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("WARNING: invalid duration for %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
