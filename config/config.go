package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port string

	// Identity provider (Supabase)
	SupabaseURL        string
	SupabaseJWTSecret  string
	SupabaseServiceKey string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// AI providers
	OpenAIAPIKey  string
	GeminiAPIKey  string
	AIProvider    string // "openai" or "gemini"
	AIModel       string
	ImageProvider string
	ImageModel    string

	// Cost limits
	DailyGlobalLimit  int
	DailyUserLimit    int
	HourlyGlobalLimit int

	// Admin
	AdminAPIKey string

	// Object storage
	S3Bucket  string
	AWSRegion string
}

// LoadConfig creates a new Config instance from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "3000"),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseJWTSecret:  os.Getenv("SUPABASE_JWT_SECRET"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "snapdish"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		AIProvider:    getEnv("AI_PROVIDER", "openai"),
		AIModel:       getEnv("AI_MODEL", "gpt-4o-mini"),
		ImageProvider: getEnv("IMAGE_PROVIDER", "openai"),
		ImageModel:    getEnv("IMAGE_MODEL", "dall-e-3"),

		DailyGlobalLimit:  getEnvInt("DAILY_GLOBAL_LIMIT", 500),
		DailyUserLimit:    getEnvInt("DAILY_USER_LIMIT", 50),
		HourlyGlobalLimit: getEnvInt("HOURLY_GLOBAL_LIMIT", 100),

		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		S3Bucket:  getEnv("S3_BUCKET_NAME", "recipe-thumbnails"),
		AWSRegion: getEnv("AWS_REGION", "eu-west-3"),
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// getEnv reads an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt reads an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
