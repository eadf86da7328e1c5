package config

import (
	"github.com/garyjia/notion-invoice/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Notion: container.NotionConfig{
			APIKey:            c.Notion.APIKey,
			InvoicesDatabase:  c.Notion.InvoicesDatabase,
			ItemsDatabase:     c.Notion.ItemsDatabase,
			UsersDatabase:     c.Notion.UsersDatabase,
			BaseURL:           c.Notion.BaseURL,
			Version:           c.Notion.Version,
			Timeout:           c.Notion.Timeout,
			RequestsPerSecond: c.Notion.RequestsPerSecond,
			MaxRetries:        c.Notion.MaxRetries,
		},
		Auth: container.AuthConfig{
			Secret:   c.Auth.JWTSecret,
			Issuer:   c.Auth.Issuer,
			TokenTTL: c.Auth.TokenTTL,
		},
		Cache: container.CacheConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			TTL:      c.Redis.TTL,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			Version:         c.App.Version,
			Environment:     c.App.Environment,
			AllowedOrigins:  c.Server.AllowedOrigins,
			PublicBaseURL:   c.Server.PublicBaseURL,
			PublicRateLimit: c.Server.PublicRateLimit,
			PublicBurst:     c.Server.PublicBurst,
		},
		Worker: container.WorkerConfig{
			ShareSweepInterval: c.Share.SweepInterval,
			ShareSweepTimeout:  c.Share.SweepTimeout,
		},
	}
}
