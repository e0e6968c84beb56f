package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port             int
	DevMode          bool
	DatabasePath     string
	LogLevel         string
	StartingBalance  decimal.Decimal
	SlippagePct      decimal.Decimal // 0 disables the slippage check
	SeedDemoAccount  bool
	DemoAccountToken string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnvAsInt("PORT", 8080),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		DatabasePath:     getEnv("DATABASE_PATH", "./data/exchange.db"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		StartingBalance:  getEnvAsDecimal("STARTING_BALANCE", "10000"),
		SlippagePct:      getEnvAsDecimal("SLIPPAGE_TOLERANCE_PCT", "5"),
		SeedDemoAccount:  getEnvAsBool("SEED_DEMO_ACCOUNT", true),
		DemoAccountToken: getEnv("DEMO_ACCOUNT_TOKEN", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	if c.StartingBalance.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("STARTING_BALANCE must be positive")
	}

	if c.SlippagePct.IsNegative() {
		return fmt.Errorf("SLIPPAGE_TOLERANCE_PCT must not be negative")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(defaultValue)
	return d
}
