package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string
	Port         string
	LogLevel     string
	LogFormat    string

	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string

	// Monthly summary
	SummaryProvider           string
	SummaryTimeout            time.Duration
	SummaryIncludeOutsideDays bool

	Locale   string
	Timezone string

	JWTSecret string
	SeedFile  string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	TelegramChildID        int64
	AdminTelegramID        int64
}

// LoadDotEnv loads a .env file into the process environment when one exists.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		DatabasePath: getEnv("DATABASE_PATH", "data/meal-calendar.db"),
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GroqAPIKey:   os.Getenv("GROQ_API_KEY"),

		SummaryProvider: strings.ToLower(getEnv("SUMMARY_PROVIDER", ProviderGemini)),

		Locale:   getEnv("LOCALE", "ko"),
		Timezone: getEnv("TIMEZONE", "Asia/Seoul"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		SeedFile:  os.Getenv("SEED_FILE"),

		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
	}

	switch cfg.SummaryProvider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("invalid SUMMARY_PROVIDER: %q (expected %s or %s)", cfg.SummaryProvider, ProviderGemini, ProviderGroq)
	}

	timeout, err := time.ParseDuration(getEnv("SUMMARY_TIMEOUT", "60s"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("invalid SUMMARY_TIMEOUT: %q", os.Getenv("SUMMARY_TIMEOUT"))
	}
	cfg.SummaryTimeout = timeout

	if v := os.Getenv("SUMMARY_INCLUDE_OUTSIDE_DAYS"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SUMMARY_INCLUDE_OUTSIDE_DAYS: %w", err)
		}
		cfg.SummaryIncludeOutsideDays = include
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	// Telegram Config (Optional for CLI, required for Bot)
	if v := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
			}
			cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
		}
	}
	if cfg.TelegramChildID, err = getEnvInt64("TELEGRAM_CHILD_ID"); err != nil {
		return nil, err
	}
	if cfg.AdminTelegramID, err = getEnvInt64("ADMIN_TELEGRAM_ID"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
