package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the environment-driven application configuration, read once
// at startup.
type Config struct {
	DatabaseURL string
	Port        int

	JWTSecret string
	JWTExpiry time.Duration
	// JWKSURL switches token verification to a remote key set. Used by
	// deployments that delegate sign-in to a hosted auth provider.
	JWKSURL string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	ImagesBucket   string
	DocsBucket     string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads the configuration from the environment. DATABASE_URL and
// JWT_SECRET are required; everything else has a development default.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Port:           getInt("PORT", 8080),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTExpiry:      getDuration("JWT_EXPIRES_IN", 7*24*time.Hour),
		JWKSURL:        os.Getenv("AUTH_JWKS_URL"),
		MinioEndpoint:  getString("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getString("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getString("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		ImagesBucket:   getString("MINIO_IMAGES_BUCKET", "images"),
		DocsBucket:     getString("MINIO_DOCS_BUCKET", "documents"),
		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPPort:       getInt("SMTP_PORT", 587),
		SMTPUser:       os.Getenv("SMTP_USER"),
		SMTPPassword:   os.Getenv("SMTP_PASS"),
		SMTPFrom:       getString("SMTP_FROM", "Medidor <noreply@medidor.local>"),
		RedisAddr:      getString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getInt("REDIS_DB", 0),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" && cfg.JWKSURL == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
