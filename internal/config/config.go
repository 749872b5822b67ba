package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port           int
	LogLevel       string
	AllowedOrigins []string

	// External services
	PlacesAPIURL string
	OpenAIAPIURL string

	// Default API credentials; settings stored per agency take precedence.
	GooglePlacesKey string
	OpenAIKey       string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Storage
	DataDir string

	// Event bus
	AMQPURL string

	// JWT / Auth
	JWTSecret    string
	JWTAccessTTL time.Duration

	// Demo account
	DemoEmail        string
	DemoPasswordHash string

	// Embed tokens
	EmbedTokenTTL time.Duration

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
}

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnvInt("PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "*")),

		PlacesAPIURL: getEnv("PLACES_API_URL", "https://places.googleapis.com"),
		OpenAIAPIURL: getEnv("OPENAI_API_URL", "https://api.openai.com"),

		GooglePlacesKey: getEnv("GOOGLE_PLACES_API_KEY", ""),
		OpenAIKey:       getEnv("OPENAI_API_KEY", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 10),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		DataDir: getEnv("DATA_DIR", "./data"),

		AMQPURL: getEnv("AMQP_URL", ""),

		JWTSecret:    getEnv("JWT_SECRET", "leadgen-default-dev-secret-change-me"),
		JWTAccessTTL: getEnvDuration("JWT_ACCESS_TTL", 12*time.Hour),

		DemoEmail:        getEnv("DEMO_EMAIL", "demo@example.com"),
		DemoPasswordHash: getEnv("DEMO_PASSWORD_HASH", ""),

		EmbedTokenTTL: getEnvDuration("EMBED_TOKEN_TTL", 24*time.Hour),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "reports@example.com"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
