package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// Ledger
	DefaultAccountID  int64
	LedgerHorizonDays int

	// Worker
	PostingInterval time.Duration

	// Logging
	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bilancio.db"),

		DefaultAccountID:  getEnvInt64("DEFAULT_ACCOUNT_ID", 1),
		LedgerHorizonDays: getEnvInt("LEDGER_HORIZON_DAYS", 90),

		PostingInterval: getEnvDuration("POSTING_INTERVAL", time.Hour),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.DefaultAccountID < 1 {
		errors = append(errors, fmt.Sprintf("invalid default account id %d: must be at least 1", c.DefaultAccountID))
	}

	if c.LedgerHorizonDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid ledger horizon %d: must be at least 1 day", c.LedgerHorizonDays))
	} else if c.LedgerHorizonDays > 3650 {
		errors = append(errors, fmt.Sprintf("invalid ledger horizon %d: must be at most 3650 days", c.LedgerHorizonDays))
	}

	if c.PostingInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid posting interval %v: must be at least 1 second", c.PostingInterval))
	} else if c.PostingInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid posting interval %v: must be at most 24 hours", c.PostingInterval))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	isValidLevel := false
	for _, level := range validLevels {
		if c.LogLevel == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
