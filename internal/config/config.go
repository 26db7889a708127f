package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Household served by this process
	FamilyID   string
	FamilyName string
	Locale     string
	Timezone   string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string

	// AMQP change events; empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets push
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleSheetName          string

	// AI categorization and offers; empty key disables the remote service
	GeminiAPIKey    string
	GeminiModel     string
	AIRatePerMinute int
	AICacheTTL      time.Duration

	// Device-local keys and offer scheduling
	DeviceDataDir      string
	OfferCheckInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	validBackends   = []string{"memory", "sqlite"}
	validLocales    = []string{"en", "it"}
	validLogFormats = []string{"text", "json"}
)

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		FamilyID:   getEnv("FAMILY_ID", "local-family"),
		FamilyName: getEnv("FAMILY_NAME", "Famiglia"),
		Locale:     getEnv("LOCALE", "it"),
		Timezone:   getEnv("TIMEZONE", "Local"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spesacasa.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spesacasa"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sheets_expenses"),

		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Spese"),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AIRatePerMinute: getEnvInt("AI_RATE_PER_MINUTE", 20),
		AICacheTTL:      getEnvDuration("AI_CACHE_TTL", 24*time.Hour),

		DeviceDataDir:      getEnv("DEVICE_DATA_DIR", "./data/device"),
		OfferCheckInterval: getEnvDuration("OFFER_CHECK_INTERVAL", time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Location resolves Timezone. "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// AMQPEnabled reports whether change events should be published.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.FamilyID) == "" {
		errors = append(errors, "family id cannot be empty")
	}
	if strings.TrimSpace(c.FamilyName) == "" {
		errors = append(errors, "family name cannot be empty")
	}
	if !slices.Contains(validLocales, c.Locale) {
		errors = append(errors, fmt.Sprintf("invalid locale '%s': must be one of %v", c.Locale, validLocales))
	}
	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(filepath.Dir(c.SQLiteDBPath)); msg != "" {
			errors = append(errors, "cannot create SQLite database directory "+msg)
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.GeminiAPIKey != "" && c.GeminiModel == "" {
		errors = append(errors, "Gemini model cannot be empty when an API key is provided")
	}
	if c.AIRatePerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid AI rate %d: must be at least 1 per minute", c.AIRatePerMinute))
	}
	if c.AICacheTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid AI cache TTL %v: must be at least 1 minute", c.AICacheTTL))
	}

	if c.DeviceDataDir == "" {
		errors = append(errors, "device data directory cannot be empty")
	}
	if c.OfferCheckInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid offer check interval %v: must be at least 1 minute", c.OfferCheckInterval))
	} else if c.OfferCheckInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid offer check interval %v: must be at most 24 hours", c.OfferCheckInterval))
	}

	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ensureDir returns a description of the failure, or "" on success.
func ensureDir(dir string) string {
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("'%s': %v", dir, err)
		}
	}
	return ""
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
