package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	PollInterval  time.Duration
	// TimezoneOffsetHours is the fixed operational timezone used for all
	// recurrence arithmetic, independent of the host's locale.
	TimezoneOffsetHours int
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken:       strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		PollInterval:        parseSeconds(strings.TrimSpace(os.Getenv("POLL_INTERVAL_SECONDS"))),
		TimezoneOffsetHours: parseOffset(strings.TrimSpace(os.Getenv("TIMEZONE_OFFSET_HOURS"))),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "taskhub.db"
	}

	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Minute
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

// Location returns the operational timezone as a fixed-offset location.
func (c Config) Location() *time.Location {
	name := fmt.Sprintf("UTC%+d", c.TimezoneOffsetHours)
	return time.FixedZone(name, c.TimezoneOffsetHours*3600)
}

func parseSeconds(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func parseOffset(raw string) int {
	if raw == "" {
		return 8
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours < -12 || hours > 14 {
		return 8
	}
	return hours
}
