package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewFromEnv(t *testing.T) {
	// Helper function to set environment variables for a test
	setEnv := func(key, value string) {
		t.Helper()
		t.Setenv(key, value)
	}

	t.Run("Success", func(t *testing.T) {
		setEnv("GEMINI_API_KEY", "gemini_key")
		setEnv("TELEGRAM_ALLOWED_USER_IDS", "10, 20")
		setEnv("TELEGRAM_CHILD_ID", "5")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.GeminiAPIKey != "gemini_key" {
			t.Errorf("Expected GeminiAPIKey to be 'gemini_key', got '%s'", cfg.GeminiAPIKey)
		}
		if cfg.SummaryProvider != ProviderGemini {
			t.Errorf("Expected default provider %q, got %q", ProviderGemini, cfg.SummaryProvider)
		}
		if cfg.SummaryTimeout != 60*time.Second {
			t.Errorf("Expected default timeout 60s, got %s", cfg.SummaryTimeout)
		}
		if cfg.SummaryIncludeOutsideDays {
			t.Error("Expected out-of-month days to be excluded by default")
		}
		if cfg.Locale != "ko" {
			t.Errorf("Expected default locale 'ko', got '%s'", cfg.Locale)
		}
		if len(cfg.TelegramAllowedUserIDs) != 2 || cfg.TelegramAllowedUserIDs[1] != 20 {
			t.Errorf("Unexpected allowed user ids: %v", cfg.TelegramAllowedUserIDs)
		}
		if cfg.TelegramChildID != 5 {
			t.Errorf("Expected TelegramChildID 5, got %d", cfg.TelegramChildID)
		}
	})

	t.Run("MissingGeminiAPIKey", func(t *testing.T) {
		os.Unsetenv("GEMINI_API_KEY")
		setEnv("SUMMARY_PROVIDER", "gemini")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing GEMINI_API_KEY, got nil")
		}
		expectedError := "GEMINI_API_KEY environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("MissingGroqAPIKey", func(t *testing.T) {
		setEnv("SUMMARY_PROVIDER", "groq")
		os.Unsetenv("GROQ_API_KEY")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing GROQ_API_KEY, got nil")
		}
		expectedError := "GROQ_API_KEY environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("InvalidProvider", func(t *testing.T) {
		setEnv("SUMMARY_PROVIDER", "openai")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for an unknown provider, got nil")
		}
	})

	t.Run("IncludeOutsideDays", func(t *testing.T) {
		setEnv("GEMINI_API_KEY", "gemini_key")
		setEnv("SUMMARY_PROVIDER", "gemini")
		setEnv("SUMMARY_INCLUDE_OUTSIDE_DAYS", "true")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !cfg.SummaryIncludeOutsideDays {
			t.Error("Expected SummaryIncludeOutsideDays to be true")
		}
	})

	t.Run("InvalidTimeout", func(t *testing.T) {
		setEnv("GEMINI_API_KEY", "gemini_key")
		setEnv("SUMMARY_PROVIDER", "gemini")
		setEnv("SUMMARY_TIMEOUT", "soon")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for an invalid SUMMARY_TIMEOUT, got nil")
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("MissingFileIsIgnored", func(t *testing.T) {
		if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	})

	t.Run("LoadsValues", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("MEAL_CALENDAR_TEST_VALUE=from-file\n"), 0644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("MEAL_CALENDAR_TEST_VALUE", "")
		os.Unsetenv("MEAL_CALENDAR_TEST_VALUE")

		if err := LoadDotEnv(path); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if got := os.Getenv("MEAL_CALENDAR_TEST_VALUE"); got != "from-file" {
			t.Errorf("Expected 'from-file', got '%s'", got)
		}
	})
}
