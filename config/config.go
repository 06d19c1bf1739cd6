// Package config loads application configuration from environment
// variables, with an optional .env file for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// HTTP
	HTTPPort      int
	DefaultUserID int64

	// Database
	DBPath string

	// Logging
	LogLevel string

	// Quote providers
	AlphaVantageKeys []string
	MOEXBaseURL      string
	AlphaBaseURL     string
	QuoteTTL         time.Duration
	// QuoteWarmInterval is a cron spec for the background cache warmer.
	// Empty disables warming.
	QuoteWarmInterval string

	// Binance (crypto prices; keys optional for public endpoints)
	BinanceEnabled bool
	BinanceAPIKey  string
	BinanceSecret  string
	BinanceTestnet bool
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string

	cfg.HTTPPort = getEnvAsInt("HTTP_PORT", 8080)
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		errs = append(errs, "HTTP_PORT must be a valid port number")
	}

	cfg.DefaultUserID = int64(getEnvAsInt("DEFAULT_USER_ID", 1))
	if cfg.DefaultUserID <= 0 {
		errs = append(errs, "DEFAULT_USER_ID must be positive")
	}

	cfg.DBPath = getEnv("DB_PATH", "./data/margin_diary.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	// ALPHAVANTAGE_API_KEYS takes precedence; the singular key is kept for
	// older deployments.
	rawKeys := getEnv("ALPHAVANTAGE_API_KEYS", "")
	if rawKeys == "" {
		rawKeys = getEnv("ALPHAVANTAGE_API_KEY", "")
	}
	for _, k := range strings.Split(rawKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			cfg.AlphaVantageKeys = append(cfg.AlphaVantageKeys, k)
		}
	}

	cfg.MOEXBaseURL = getEnv("MOEX_BASE_URL", "")
	cfg.AlphaBaseURL = getEnv("ALPHA_BASE_URL", "")

	ttlSeconds := getEnvAsInt("QUOTE_TTL_SECONDS", 600)
	if ttlSeconds <= 0 {
		errs = append(errs, "QUOTE_TTL_SECONDS must be positive")
	}
	cfg.QuoteTTL = time.Duration(ttlSeconds) * time.Second

	cfg.QuoteWarmInterval = getEnv("QUOTE_WARM_INTERVAL", "@every 10m")

	cfg.BinanceEnabled = getEnvAsBool("BINANCE_ENABLED", false)
	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceSecret = getEnv("BINANCE_API_SECRET", "")
	cfg.BinanceTestnet = getEnvAsBool("BINANCE_TESTNET", false)

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
