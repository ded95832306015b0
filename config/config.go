package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds every setting the service reads from the environment.
// It is built once at startup and passed down explicitly; nothing else in the
// codebase reads os.Getenv after Load returns.
type Config struct {
	ListenAddr string

	// PublicBaseURL is the externally reachable origin used when building
	// links that leave the service, such as party-invite emails.
	PublicBaseURL string

	MongoURI      string
	MongoDatabase string

	GeminiAPIKey string
	GeminiModel  string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	JWTSecret string

	AllowedOrigins []string

	EmailEnabled  bool
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string

	StreamPollInterval time.Duration
	StreamMaxLifetime  time.Duration
}

// Load reads the configuration from environment variables and applies
// defaults. Required values that are missing produce an error here instead of
// a late failure deep inside a request.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		MongoURI:           os.Getenv("MONGODB_URI"),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "d20adventures"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		MinioEndpoint:      os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:        getEnv("MINIO_BUCKET", "d20-content"),
		MinioUseSSL:        os.Getenv("MINIO_USE_SSL") == "true",
		JWTSecret:          os.Getenv("JWT_SECRET"),
		ResendAPIKey:       os.Getenv("RESEND_API_KEY"),
		EmailFrom:          getEnv("EMAIL_FROM", "noreply@d20adventures.app"),
		EmailFromName:      getEnv("EMAIL_FROM_NAME", "D20 Adventures"),
		StreamPollInterval: getDuration("STREAM_POLL_INTERVAL", 2*time.Second),
		StreamMaxLifetime:  getDuration("STREAM_MAX_LIFETIME", 30*time.Minute),
	}

	cfg.EmailEnabled = cfg.ResendAPIKey != ""

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGODB_URI environment variable not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
