package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

func TestInvoiceCache_DisabledWithoutClient(t *testing.T) {
	c := NewInvoiceCache(nil, 0, zap.NewNop())
	ctx := context.Background()

	assert.False(t, c.Enabled())
	c.Set(ctx, &entity.Invoice{ID: "INV-1"})
	got, ok := c.Get(ctx, "INV-1")
	assert.False(t, ok)
	assert.Nil(t, got)
	c.Invalidate(ctx, "INV-1")
	assert.NoError(t, c.Health(ctx))
	assert.NoError(t, c.Close())
	assert.Equal(t, DefaultTTL, c.ttl)
}

func TestInvoiceCache_UnreachableServerIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewInvoiceCache(client, time.Minute, zap.NewNop())
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, &entity.Invoice{ID: "INV-1"})
	got, ok := c.Get(ctx, "INV-1")
	assert.False(t, ok)
	assert.Nil(t, got)
	c.Invalidate(ctx, "INV-1")
	assert.Error(t, c.Health(ctx))
}

func TestConnect_FailsFast(t *testing.T) {
	client, err := Connect(Config{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "invoice:INV-2026-0001", key("INV-2026-0001"))
}
