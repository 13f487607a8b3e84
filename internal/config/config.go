package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Schedule configuration
	ScoringSchedule string // "daily" or "weekly"
	TimeZone        string

	// Database configuration
	DatabaseURL string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Scoring window configuration
	ScoringWindowDays int // evaluation period length for scheduled runs

	// Alerting configuration
	EnableAlerting     bool
	AlertDedupHours    int // suppress duplicate alerts created within this window
	NegativeKeywords   []string
	MinEngagementAlert int // minimum engagement for negative-social alerts
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Debug:           getBoolEnv("DEBUG", false),
		ScoringSchedule: getEnv("SCORING_SCHEDULE", "daily"),
		TimeZone:        getEnv("TIMEZONE", "UTC"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		ScoringWindowDays: getIntEnv("SCORING_WINDOW_DAYS", 30),

		EnableAlerting:  getBoolEnv("ENABLE_ALERTING", true),
		AlertDedupHours: getIntEnv("ALERT_DEDUP_HOURS", 24),
		NegativeKeywords: getSliceEnv("NEGATIVE_KEYWORDS", []string{
			"fraud", "scam", "complaint", "lawsuit", "ripoff",
			"arrest", "bankruptcy", "scandal", "investigation", "recall",
		}),
		MinEngagementAlert: getIntEnv("MIN_ENGAGEMENT_ALERT", 10),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ScoringSchedule != "daily" && c.ScoringSchedule != "weekly" {
		return fmt.Errorf("SCORING_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.ScoringWindowDays <= 0 {
		return fmt.Errorf("SCORING_WINDOW_DAYS must be positive")
	}

	if c.AlertDedupHours <= 0 {
		return fmt.Errorf("ALERT_DEDUP_HOURS must be positive")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
