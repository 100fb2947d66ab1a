package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// HTTP API
	Port int

	// Account defaults, used to seed the settings store on first run
	DefaultBalance       float64 // Starting account balance in dollars
	DefaultUnitRiskValue float64 // Dollar value of one risk unit ("1R")

	// Database
	DBPath string

	// Market data (optional; the journal works without an exchange connection)
	BinanceAPIKey    string
	BinanceSecretKey string
	UseTestnet       bool
	MarketDataOn     bool

	// Periodic jobs
	SnapshotsOn bool

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	cfg.Port, err = getEnvAsIntRequired("PORT", 8080)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PORT: %v", err))
	} else if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, "PORT must be between 1 and 65535")
	}

	cfg.DefaultBalance, err = getEnvAsFloatRequired("DEFAULT_BALANCE", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_BALANCE: %v", err))
	} else if cfg.DefaultBalance < 0 {
		errs = append(errs, "DEFAULT_BALANCE cannot be negative")
	}

	cfg.DefaultUnitRiskValue, err = getEnvAsFloatRequired("DEFAULT_UNIT_RISK_VALUE", 100.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_UNIT_RISK_VALUE: %v", err))
	} else if cfg.DefaultUnitRiskValue <= 0 {
		errs = append(errs, "DEFAULT_UNIT_RISK_VALUE must be positive")
	}

	cfg.DBPath = getEnv("DB_PATH", "./data/tradejournal.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Market data is optional; keys are only needed for private endpoints,
	// which the journal does not call.
	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceSecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.UseTestnet = getEnvAsBool("IS_TESTNET", false)
	cfg.MarketDataOn = getEnvAsBool("MARKET_DATA_ENABLED", true)

	cfg.SnapshotsOn = getEnvAsBool("BALANCE_SNAPSHOTS_ENABLED", true)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

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

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
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
