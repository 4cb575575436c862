package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env           string
	Port          string
	Database      DatabaseConfig
	AI            AIConfig
	Normalization NormalizationConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// AIConfig holds the external categorization service configuration
type AIConfig struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// NormalizationConfig holds every externally tunable threshold of the
// normalization and collective-learning pipeline.
type NormalizationConfig struct {
	// BaseThreshold is the minimum trigram similarity for a fuzzy product match.
	BaseThreshold float64
	// StrictThreshold replaces BaseThreshold for texts shorter than ShortTextLength.
	StrictThreshold float64
	// ShortTextLength is the rune-length cutoff below which StrictThreshold applies.
	ShortTextLength int
	// GroupingThreshold buckets verified unresolved texts into candidates.
	GroupingThreshold float64
	// AIConfidenceThreshold gates acceptance of AI category suggestions.
	AIConfidenceThreshold float64
	// PromotionThreshold is the confirmation count at which a candidate
	// becomes a canonical product.
	PromotionThreshold int
	// FallbackCategory is the name of the permanent catch-all category.
	FallbackCategory string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "3001"),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "paragon"),
		},
		AI: AIConfig{
			APIKey:     os.Getenv("GEMINI_API_KEY"),
			Model:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout:    time.Duration(getEnvInt("AI_TIMEOUT_SECONDS", 15)) * time.Second,
			MaxRetries: getEnvInt("AI_MAX_RETRIES", 3),
		},
		Normalization: NormalizationConfig{
			BaseThreshold:         getEnvFloat("NORM_BASE_THRESHOLD", 0.75),
			StrictThreshold:       getEnvFloat("NORM_STRICT_THRESHOLD", 0.9),
			ShortTextLength:       getEnvInt("NORM_SHORT_TEXT_LEN", 6),
			GroupingThreshold:     getEnvFloat("NORM_GROUPING_THRESHOLD", 0.85),
			AIConfidenceThreshold: getEnvFloat("AI_CONFIDENCE_THRESHOLD", 0.8),
			PromotionThreshold:    getEnvInt("PROMOTION_THRESHOLD", 10),
			FallbackCategory:      getEnv("FALLBACK_CATEGORY", "Other"),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
