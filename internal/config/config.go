package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Mercado Pago
	MPAccessToken  string
	MPBaseURL      string
	SuccessURL     string
	FailureURL     string
	NotificationURL string

	// Booking rules
	DepositFraction  float64
	ServiceDurations string
	OpeningHour      int
	ClosingHour      int

	// Ledger sink (one destination is required)
	SheetsWebAppURL    string
	SheetsSpreadsheetID string
	SheetsRange         string

	// Notifications
	WhatsAppNumber    string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	StaffEmail        string

	// Storage (optional; in-memory fallbacks when unset)
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	// Outbound retry policy
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MPAccessToken:   getEnv("MP_ACCESS_TOKEN", ""),
		MPBaseURL:       getEnv("MP_BASE_URL", "https://api.mercadopago.com"),
		SuccessURL:      getEnv("SUCCESS_URL", ""),
		FailureURL:      getEnv("FAILURE_URL", ""),
		NotificationURL: getEnv("NOTIFICATION_URL", ""),

		DepositFraction:  getEnvAsFloat("DEPOSIT_FRACTION", 0.3),
		ServiceDurations: getEnv("SERVICE_DURATIONS", ""),
		OpeningHour:      getEnvAsInt("OPENING_HOUR", 9),
		ClosingHour:      getEnvAsInt("CLOSING_HOUR", 19),

		SheetsWebAppURL:     getEnv("SHEETS_WEBAPP_URL", ""),
		SheetsSpreadsheetID: getEnv("SHEETS_SPREADSHEET_ID", ""),
		SheetsRange:         getEnv("SHEETS_RANGE", "Agendamentos!A:J"),

		WhatsAppNumber:    getEnv("WHATSAPP_NUMBER", ""),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Agenda"),
		StaffEmail:        getEnv("STAFF_EMAIL", ""),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		RetryMaxAttempts: getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   getEnvAsDuration("RETRY_BASE_DELAY", 500*time.Millisecond),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

// Validate fails fast on missing required settings so a bad deploy dies at
// startup instead of at the first request.
func (c *Config) Validate() error {
	if c.MPAccessToken == "" {
		return fmt.Errorf("config: MP_ACCESS_TOKEN is required")
	}
	if c.WhatsAppNumber == "" {
		return fmt.Errorf("config: WHATSAPP_NUMBER is required")
	}
	if c.SheetsWebAppURL == "" && c.SheetsSpreadsheetID == "" {
		return fmt.Errorf("config: a ledger destination is required (SHEETS_WEBAPP_URL or SHEETS_SPREADSHEET_ID)")
	}
	if c.DepositFraction <= 0 || c.DepositFraction > 1 {
		return fmt.Errorf("config: DEPOSIT_FRACTION must be in (0, 1], got %v", c.DepositFraction)
	}
	if c.OpeningHour < 0 || c.ClosingHour > 24 || c.OpeningHour >= c.ClosingHour {
		return fmt.Errorf("config: invalid opening hours %d..%d", c.OpeningHour, c.ClosingHour)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("config: RETRY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
