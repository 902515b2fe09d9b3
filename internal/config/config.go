package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port   string
	AppEnv string

	// Auth
	AppPassword     string
	SessionTTL      time.Duration
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP. An empty URL runs conversions on the in-process worker pool.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Conversion workers
	ConversionWorkers   int
	ConversionQueueSize int
	ConversionTimeout   time.Duration

	// Exchange rates
	FrankfurterURL string
	RateCacheTTL   time.Duration

	// Per diem
	RatesFile      string
	TravelTimezone string

	// Google Sheets export
	SheetsEnabled            bool
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// S3 archive
	S3Bucket string
	S3Region string
	S3Prefix string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "development"),

		AppPassword:     os.Getenv("APP_PASSWORD"),
		SessionTTL:      getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 5),
		LoginRateWindow: getEnvDuration("LOGIN_RATE_WINDOW", time.Minute),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/rem-expenses.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "rem_expenses"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "currency_conversions"),

		ConversionWorkers:   getEnvInt("CONVERSION_WORKERS", 4),
		ConversionQueueSize: getEnvInt("CONVERSION_QUEUE_SIZE", 256),
		ConversionTimeout:   getEnvDuration("CONVERSION_TIMEOUT", 15*time.Second),

		FrankfurterURL: getEnv("FRANKFURTER_URL", "https://api.frankfurter.app"),
		RateCacheTTL:   getEnvDuration("RATE_CACHE_TTL", time.Hour),

		RatesFile:      getEnv("RATES_FILE", ""),
		TravelTimezone: getEnv("TRAVEL_TIMEZONE", "Europe/Berlin"),

		SheetsEnabled:            getEnvBool("GOOGLE_SHEETS_ENABLED", false),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		S3Bucket: getEnv("S3_BUCKET", ""),
		S3Region: getEnv("S3_REGION", os.Getenv("AWS_REGION")),
		S3Prefix: getEnv("S3_PREFIX", "exports"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Production reports whether APP_ENV is production.
func (c *Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Location resolves TravelTimezone, falling back to UTC when it is empty.
func (c *Config) Location() (*time.Location, error) {
	if c.TravelTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TravelTimezone)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
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
		// the worker process can only reach drafts through the shared database
		if c.DataBackend == "memory" {
			errors = append(errors, "AMQP conversion dispatch requires the sqlite backend")
		}
	}

	// Validate login rate limit and sessions
	if c.LoginRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid login rate limit %d: must be at least 1", c.LoginRateLimit))
	}
	if c.LoginRateWindow < time.Second {
		errors = append(errors, fmt.Sprintf("invalid login rate window %v: must be at least 1 second", c.LoginRateWindow))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	// Validate worker configuration
	if c.ConversionWorkers < 1 {
		errors = append(errors, fmt.Sprintf("invalid conversion worker count %d: must be at least 1", c.ConversionWorkers))
	} else if c.ConversionWorkers > 64 {
		errors = append(errors, fmt.Sprintf("invalid conversion worker count %d: must be at most 64", c.ConversionWorkers))
	}
	if c.ConversionQueueSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid conversion queue size %d: must be at least 1", c.ConversionQueueSize))
	}
	if c.ConversionTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid conversion timeout %v: must be at least 1 second", c.ConversionTimeout))
	} else if c.ConversionTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid conversion timeout %v: must be at most 5 minutes", c.ConversionTimeout))
	}

	// Validate exchange rate API
	if parsedURL, err := url.Parse(c.FrankfurterURL); err != nil || c.FrankfurterURL == "" {
		errors = append(errors, fmt.Sprintf("invalid Frankfurter URL '%s'", c.FrankfurterURL))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid Frankfurter URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	// Validate rates file if specified
	if c.RatesFile != "" {
		if _, err := os.Stat(c.RatesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("rates file does not exist: %s", c.RatesFile))
		}
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid travel timezone '%s': %v", c.TravelTimezone, err))
	}

	// Validate Google Sheets configuration if enabled
	if c.SheetsEnabled {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when the sheets export is enabled")
		}
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the sheets export")
		}
		if hasFile && !hasJSON {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate S3 archive
	if c.S3Bucket != "" && c.S3Region == "" {
		errors = append(errors, "S3 region is required when S3_BUCKET is set")
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
