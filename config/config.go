// Package config loads the application configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Recalc   RecalcConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string
}

// RecalcConfig holds the scheduled duty-point recalculation settings.
type RecalcConfig struct {
	Enabled      bool
	CronSchedule string
	WindowDays   int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Format string // "json" or "console"
	Level  string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from
		// the environment directly.
		_ = godotenv.Load()
	}

	windowDays, err := strconv.Atoi(getenvWithDefault("RECALC_WINDOW_DAYS", "14"))
	if err != nil {
		return nil, fmt.Errorf("RECALC_WINDOW_DAYS must be an integer: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getenvWithDefault("APP_PORT", "8080"),
			CORSOrigins: splitCSV(getenvWithDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")),
		},
		Database: DatabaseConfig{
			Path: getenvWithDefault("SQLITE_PATH", "sitebook.db"),
		},
		Recalc: RecalcConfig{
			Enabled:      getenvWithDefault("RECALC_ENABLED", "true") == "true",
			CronSchedule: getenvWithDefault("RECALC_CRON_SCHEDULE", "30 2 * * *"),
			WindowDays:   windowDays,
		},
		Log: LogConfig{
			Format: getenvWithDefault("LOG_FORMAT", "json"),
			Level:  getenvWithDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}
	if c.Database.Path == "" {
		return errors.New("SQLITE_PATH must be provided")
	}
	if c.Recalc.Enabled && c.Recalc.CronSchedule == "" {
		return errors.New("RECALC_CRON_SCHEDULE must be provided when recalculation is enabled")
	}
	if c.Recalc.WindowDays < 1 {
		return errors.New("RECALC_WINDOW_DAYS must be at least 1")
	}
	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
