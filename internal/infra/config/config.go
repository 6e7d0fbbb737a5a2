package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken         string
	DatabaseURL           string
	AdminTelegramID       int64 // receives pendencies reports; 0 disables them
	LogLevel              string
	Environment           string
	FormLanguage          string
	NormalizationStrategy string // "cadence" or "iso-week"
	CronSpecSettingsSync  string // re-reads routine settings and reschedules jobs
	ReminderOffsetDays    int    // days after the routine run the reminder fires
	HistoryWindows        int    // windows shown in answer history
	DirectoryCacheTTL     time.Duration
}

// Load reads configuration from environment variables and .env file (if present).
// The bot token is only required when requireBot is set; operator tooling runs without it.
func Load(requireBot bool) (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if requireBot && cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.FormLanguage = os.Getenv("FORM_LANGUAGE")
	if cfg.FormLanguage == "" {
		cfg.FormLanguage = "pt-BR"
	}

	cfg.NormalizationStrategy = strings.ToLower(os.Getenv("NORMALIZATION_STRATEGY"))
	if cfg.NormalizationStrategy == "" {
		cfg.NormalizationStrategy = "cadence"
	}

	cfg.CronSpecSettingsSync = os.Getenv("CRON_SPEC_SETTINGS_SYNC")
	if cfg.CronSpecSettingsSync == "" {
		cfg.CronSpecSettingsSync = "*/10 * * * *" // Default: every 10 minutes
	}

	if cfg.ReminderOffsetDays, err = intFromEnv("REMINDER_OFFSET_DAYS", 3); err != nil {
		return nil, err
	}
	if cfg.HistoryWindows, err = intFromEnv("HISTORY_WINDOWS", 5); err != nil {
		return nil, err
	}
	if cfg.HistoryWindows < 1 {
		return nil, fmt.Errorf("HISTORY_WINDOWS must be positive, got %d", cfg.HistoryWindows)
	}

	cfg.DirectoryCacheTTL = 5 * time.Minute
	if ttlStr := os.Getenv("DIRECTORY_CACHE_TTL"); ttlStr != "" {
		cfg.DirectoryCacheTTL, err = time.ParseDuration(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid DIRECTORY_CACHE_TTL: %w", err)
		}
	}

	return cfg, nil
}

func intFromEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
