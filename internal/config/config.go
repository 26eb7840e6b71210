// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir            string // Base directory for databases and report outputs (always absolute)
	ForecastServiceURL string // External quantile forecasting service
	LogLevel           string
	Port               int
	DevMode            bool
	Broker             BrokerDefaults
}

// BrokerDefaults holds the default simulation parameters applied when a
// request does not override them. They mirror the historical CLI defaults.
type BrokerDefaults struct {
	InitialCash float64 // Starting cash for each simulated account
	Commission  float64 // Commission rate per order leg (0.001 = 10 bps)
	SlippageBPS int     // Adverse fill slippage in basis points
	SizingPct   float64 // Fraction of equity committed per new position (0-1)
}

// Load reads configuration from environment variables, with .env support
func Load() (*Config, error) {
	// Load .env file if present (ignore error if missing)
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:            getEnv("STRATLAB_DATA_DIR", "./data"),
		ForecastServiceURL: getEnv("FORECAST_SERVICE_URL", "http://localhost:8502"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnvInt("PORT", 8080),
		DevMode:            getEnvBool("DEV_MODE", false),
		Broker: BrokerDefaults{
			InitialCash: getEnvFloat("INITIAL_CASH", 100000.0),
			Commission:  getEnvFloat("COMMISSION", 0.001),
			SlippageBPS: getEnvInt("SLIPPAGE_BPS", 0),
			SizingPct:   getEnvFloat("SIZING_PCT", 0.10),
		},
	}

	// Resolve data dir to an absolute path so database and report paths do
	// not depend on the working directory
	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	cfg.DataDir = absDataDir

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks configuration values that would otherwise fail deep inside
// a simulation run
func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Broker.InitialCash <= 0 {
		return fmt.Errorf("invalid initial cash: %f", c.Broker.InitialCash)
	}
	if c.Broker.Commission < 0 {
		return fmt.Errorf("invalid commission rate: %f", c.Broker.Commission)
	}
	if c.Broker.SlippageBPS < 0 {
		return fmt.Errorf("invalid slippage: %d bps", c.Broker.SlippageBPS)
	}
	return nil
}

// DatabasePath returns the path for a named database file under the data dir
func (c *Config) DatabasePath(name string) string {
	return filepath.Join(c.DataDir, name+".db")
}

// OutputsDir returns the directory report artifacts are written to
func (c *Config) OutputsDir() string {
	return filepath.Join(c.DataDir, "outputs")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
