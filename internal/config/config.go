package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	// TomTicket API
	TomTicketBaseURL     string
	TomTicketToken       string
	PageConcurrency      int           // concurrent page fetches per batch
	BatchDelay           time.Duration // pause between page batches (rate limit)
	PageTimeout          time.Duration // per-page request timeout
	SituationFilter      []int         // optional legacy filter; empty = operator-presence only
	SyncInterval         time.Duration // reconciliation period
	SyncCycleTimeout     time.Duration // overall budget for one sync cycle
	SyncBumpHandled      bool          // alternative policy: bump totalClientsHandled on load increase
	SyncMaxBackoff       time.Duration // cap for exponential backoff after repeated failures

	// Daily report
	ReportSchedule string // cron spec, local time
	ReportHistory  int    // prior reports fed into trend analysis

	// Narrative engine
	AnthropicAPIKey string
	AnthropicModel  string

	// WebSocket
	PongWait       time.Duration
	PingPeriod     time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:             getEnv("PORT", "8080"),
		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		TomTicketBaseURL: getEnv("TOMTICKET_BASE_URL", "https://api.tomticket.com"),
		TomTicketToken:   getEnv("TOMTICKET_TOKEN", ""),
		ReportSchedule:   getEnv("REPORT_SCHEDULE", "0 23 * * *"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
	}

	var err error
	if config.PageConcurrency, err = getEnvInt("TOMTICKET_PAGE_CONCURRENCY", 3); err != nil {
		return nil, err
	}
	if config.PageConcurrency < 1 {
		return nil, fmt.Errorf("TOMTICKET_PAGE_CONCURRENCY must be at least 1")
	}
	if config.BatchDelay, err = getEnvDurationMs("TOMTICKET_BATCH_DELAY_MS", 1100); err != nil {
		return nil, err
	}
	if config.PageTimeout, err = getEnvDurationSec("TOMTICKET_PAGE_TIMEOUT", 10); err != nil {
		return nil, err
	}
	if config.SyncInterval, err = getEnvDurationSec("SYNC_INTERVAL", 30); err != nil {
		return nil, err
	}
	if config.SyncCycleTimeout, err = getEnvDurationSec("SYNC_CYCLE_TIMEOUT", 120); err != nil {
		return nil, err
	}
	if config.SyncMaxBackoff, err = getEnvDurationSec("SYNC_MAX_BACKOFF", 300); err != nil {
		return nil, err
	}
	if config.ReportHistory, err = getEnvInt("REPORT_HISTORY", 30); err != nil {
		return nil, err
	}

	config.SyncBumpHandled = getEnv("SYNC_BUMP_HANDLED", "false") == "true"

	if filter := getEnv("TOMTICKET_SITUATION_FILTER", ""); filter != "" {
		for _, part := range strings.Split(filter, ",") {
			code, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("invalid TOMTICKET_SITUATION_FILTER: %w", err)
			}
			config.SituationFilter = append(config.SituationFilter, code)
		}
	}

	// WebSocket timing
	readTimeout, err := getEnvDurationSec("WS_READ_TIMEOUT", 60)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := getEnvDurationSec("WS_WRITE_TIMEOUT", 10)
	if err != nil {
		return nil, err
	}
	config.PongWait = readTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = writeTimeout
	config.MaxMessageSize = 512

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvDurationSec(key string, defaultSeconds int) (time.Duration, error) {
	value, err := getEnvInt(key, defaultSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(value) * time.Second, nil
}

func getEnvDurationMs(key string, defaultMillis int) (time.Duration, error) {
	value, err := getEnvInt(key, defaultMillis)
	if err != nil {
		return 0, err
	}
	return time.Duration(value) * time.Millisecond, nil
}
