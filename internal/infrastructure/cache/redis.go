// Package cache holds the Redis read cache for fully loaded invoices.
// A nil client disables caching; every failure degrades to a miss.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/notion-invoice/internal/application/port"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
	"github.com/garyjia/notion-invoice/internal/infrastructure/metrics"
)

// InvoiceKeyFmt is the key layout of cached invoices
const InvoiceKeyFmt = "invoice:%s"

// DefaultTTL bounds how stale a cached invoice may be
const DefaultTTL = 5 * time.Minute

// Config holds the Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a Redis client and pings it. On failure the client is closed
// and nil is returned along with the error.
func Connect(cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// InvoiceCache implements port.InvoiceCache on Redis
type InvoiceCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewInvoiceCache creates a cache. client may be nil.
func NewInvoiceCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *InvoiceCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InvoiceCache{client: client, ttl: ttl, logger: logger}
}

// Enabled reports whether a Redis client is attached
func (c *InvoiceCache) Enabled() bool {
	return c.client != nil
}

// Get returns the cached invoice for id
func (c *InvoiceCache) Get(ctx context.Context, id string) (*entity.Invoice, bool) {
	if c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Invoice cache read failed", zap.String("id", id), zap.Error(err))
		}
		metrics.RecordCacheLookup(false)
		return nil, false
	}

	var inv entity.Invoice
	if err := json.Unmarshal(data, &inv); err != nil {
		c.logger.Warn("Dropping undecodable cache entry", zap.String("id", id), zap.Error(err))
		c.client.Del(ctx, key(id))
		metrics.RecordCacheLookup(false)
		return nil, false
	}

	metrics.RecordCacheLookup(true)
	return &inv, true
}

// Set stores the invoice under its logical id
func (c *InvoiceCache) Set(ctx context.Context, invoice *entity.Invoice) {
	if c.client == nil || invoice == nil {
		return
	}

	data, err := json.Marshal(invoice)
	if err != nil {
		c.logger.Warn("Invoice cache encode failed", zap.String("id", invoice.ID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key(invoice.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Invoice cache write failed", zap.String("id", invoice.ID), zap.Error(err))
	}
}

// Invalidate removes the cached invoice
func (c *InvoiceCache) Invalidate(ctx context.Context, id string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		c.logger.Warn("Invoice cache invalidation failed", zap.String("id", id), zap.Error(err))
	}
}

// Health pings Redis. A disabled cache is healthy.
func (c *InvoiceCache) Health(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the client
func (c *InvoiceCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func key(id string) string {
	return fmt.Sprintf(InvoiceKeyFmt, id)
}

var _ port.InvoiceCache = (*InvoiceCache)(nil)
