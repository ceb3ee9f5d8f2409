package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret       string
	JWTAccessExpiry time.Duration

	// OpenAI
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIEmbedModel string
	OpenAITimeout    time.Duration

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceID       string
	FrontendBaseURL     string

	// Server
	Port           string
	CORSOrigin     string
	MaxUploadBytes int64
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "looplens"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTAccessExpiry: parseDuration(getEnv("JWT_ACCESS_EXPIRY", "24h")),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel: getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		OpenAITimeout:    parseDuration(getEnv("OPENAI_TIMEOUT", "60s")),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceID:       getEnv("STRIPE_PRICE_ID", ""),
		FrontendBaseURL:     getEnv("FRONTEND_BASE_URL", ""),

		Port:           getEnv("PORT", "8080"),
		CORSOrigin:     getEnv("CORS_ORIGIN", "http://localhost:3000"),
		MaxUploadBytes: parseInt64(getEnv("MAX_UPLOAD_BYTES", ""), 5*1024*1024),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Minute
	}
	return d
}

func parseInt64(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
