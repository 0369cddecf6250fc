// Package config provides configuration management for the threads standalone server.
// It loads settings from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the threads server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Threads  ThreadsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver   string // mysql, postgres, sqlite3
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Prefix   string // Table prefix (default: "threads_")
}

// ThreadsConfig holds engine-specific configuration.
type ThreadsConfig struct {
	// HideDeleted excludes soft-deleted messages from thread listings
	// instead of returning them with redacted content.
	HideDeleted bool
}

// Load loads configuration from environment variables.
// Follows 12-factor app principles - configuration via environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite3"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "threads"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "threads.db"),
			Prefix:   getEnv("DB_PREFIX", "threads_"),
		},
		Threads: ThreadsConfig{
			HideDeleted: getEnvBool("THREADS_HIDE_DELETED", false),
		},
	}

	// Validate required fields. SQLite has no credentials; the other
	// drivers refuse to run with an empty password.
	if cfg.Database.Driver != "sqlite3" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD environment variable is required for driver %q", cfg.Database.Driver)
	}

	return cfg, nil
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	switch strings.ToLower(c.Driver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite3":
		return c.Database // SQLite uses file path as DSN
	default:
		return ""
	}
}

// getEnv retrieves environment variable or returns default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool retrieves environment variable as boolean or returns default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
