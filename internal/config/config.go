package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Notion   NotionConfig   `mapstructure:"notion"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Share    ShareConfig    `mapstructure:"share"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// AppConfig identifies the running build
type AppConfig struct {
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	PublicBaseURL   string        `mapstructure:"public_base_url"`
	PublicRateLimit float64       `mapstructure:"public_rate_limit"`
	PublicBurst     int           `mapstructure:"public_burst"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// NotionConfig holds Notion API configuration
type NotionConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	InvoicesDatabase  string        `mapstructure:"database_id"`
	ItemsDatabase     string        `mapstructure:"items_database_id"`
	UsersDatabase     string        `mapstructure:"users_database_id"`
	BaseURL           string        `mapstructure:"base_url"`
	Version           string        `mapstructure:"version"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxRetries        int           `mapstructure:"max_retries"`
}

// AuthConfig holds token issuing configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// RedisConfig holds the optional invoice cache configuration.
// An empty Addr disables caching.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ShareConfig holds share-link housekeeping configuration
type ShareConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SweepTimeout  time.Duration `mapstructure:"sweep_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from an optional YAML file, a .env file in the
// working directory and environment variables, in increasing precedence.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.AllowedOrigins = splitOrigins(cfg.Server.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := gotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.public_base_url", "http://localhost:3000")
	v.SetDefault("server.public_rate_limit", 5.0)
	v.SetDefault("server.public_burst", 10)

	// Database defaults
	v.SetDefault("database.path", "data/invoices.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "")

	// Notion defaults
	v.SetDefault("notion.base_url", "https://api.notion.com/v1")
	v.SetDefault("notion.version", "2024-06-15")
	v.SetDefault("notion.timeout", 30*time.Second)
	v.SetDefault("notion.requests_per_second", 3.0)
	v.SetDefault("notion.max_retries", 3)

	// Auth defaults
	v.SetDefault("auth.issuer", "notion-invoice")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)

	// Redis defaults
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	// Share defaults
	v.SetDefault("share.sweep_interval", time.Hour)
	v.SetDefault("share.sweep_timeout", 30*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the conventional variable names to configuration keys
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	v.BindEnv("notion.api_key", "NOTION_API_KEY")
	v.BindEnv("notion.database_id", "NOTION_DATABASE_ID")
	v.BindEnv("notion.items_database_id", "NOTION_ITEMS_DATABASE_ID")
	v.BindEnv("notion.users_database_id", "NOTION_USERS_DATABASE_ID")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.allowed_origins", "CORS_ALLOWED_ORIGINS")
	v.BindEnv("server.public_base_url", "PUBLIC_BASE_URL")
	v.BindEnv("app.environment", "APP_ENV")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("logger.level", "LOG_LEVEL")
}

// splitOrigins accepts both a YAML list and a comma separated env value
func splitOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, origin := range strings.Split(item, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate Notion credentials
	if c.Notion.APIKey == "" {
		return fmt.Errorf("notion.api_key is required (NOTION_API_KEY)")
	}
	if c.Notion.InvoicesDatabase == "" {
		return fmt.Errorf("notion.database_id is required (NOTION_DATABASE_ID)")
	}
	if c.Notion.ItemsDatabase == "" {
		return fmt.Errorf("notion.items_database_id is required (NOTION_ITEMS_DATABASE_ID)")
	}
	if c.Notion.UsersDatabase == "" {
		return fmt.Errorf("notion.users_database_id is required (NOTION_USERS_DATABASE_ID)")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (JWT_SECRET)")
	}
	if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters in production")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	return nil
}
