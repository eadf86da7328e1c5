// Package container provides dependency injection and lifecycle management
// for the invoice backend.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration (share links)
	Database DatabaseConfig

	// Notion API configuration
	Notion NotionConfig

	// Token issuing configuration
	Auth AuthConfig

	// Redis read cache configuration
	Cache CacheConfig

	// Server configuration
	Server ServerConfig

	// Worker configuration
	Worker WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// NotionConfig holds Notion API settings.
type NotionConfig struct {
	APIKey           string
	InvoicesDatabase string
	ItemsDatabase    string
	UsersDatabase    string

	// BaseURL and Version default to the public API
	BaseURL string
	Version string

	// Timeout bounds a single HTTP exchange
	Timeout time.Duration

	// RequestsPerSecond is the client-side rate limit
	RequestsPerSecond float64

	// MaxRetries is the retry budget of every gateway call
	MaxRetries int
}

// AuthConfig holds token settings.
type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// CacheConfig holds Redis settings. An empty Addr disables the cache.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	Version         string
	Environment     string
	AllowedOrigins  []string
	PublicBaseURL   string
	PublicRateLimit float64
	PublicBurst     int
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	ShareSweepInterval time.Duration
	ShareSweepTimeout  time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/invoices.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Notion: NotionConfig{
			Timeout:           30 * time.Second,
			RequestsPerSecond: 3,
			MaxRetries:        3,
		},
		Auth: AuthConfig{
			Issuer:   "notion-invoice",
			TokenTTL: 7 * 24 * time.Hour,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			Version:         "1.0.0",
			Environment:     "development",
			AllowedOrigins:  []string{"http://localhost:3000"},
			PublicBaseURL:   "http://localhost:3000",
			PublicRateLimit: 5,
			PublicBurst:     10,
		},
		Worker: WorkerConfig{
			ShareSweepInterval: time.Hour,
			ShareSweepTimeout:  30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	// Validate Notion configuration
	if c.Notion.APIKey == "" {
		return fmt.Errorf("notion.api_key is required")
	}
	if c.Notion.InvoicesDatabase == "" {
		return fmt.Errorf("notion.database_id is required")
	}
	if c.Notion.ItemsDatabase == "" {
		return fmt.Errorf("notion.items_database_id is required")
	}
	if c.Notion.UsersDatabase == "" {
		return fmt.Errorf("notion.users_database_id is required")
	}

	// Validate auth configuration
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	// Validate database configuration
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	return nil
}
