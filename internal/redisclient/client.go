package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/decrement_stock.lua
var decrementStockScript string

//go:embed scripts/restock.lua
var restockScript string

type Client struct {
	rdb             *redis.Client
	decrementScript *redis.Script
	restockScript   *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:             rdb,
		decrementScript: redis.NewScript(decrementStockScript),
		restockScript:   redis.NewScript(restockScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// DecrementStock atomically deducts stock using a Lua script.
// ok reports whether the decrement applied; mirrored reports whether the
// product was present in the cache at all (when false the caller must use
// the database path).
func (c *Client) DecrementStock(ctx context.Context, code string, quantity int) (ok, mirrored bool, err error) {
	key := fmt.Sprintf("stock:%s", code)

	result, err := c.decrementScript.Run(ctx, c.rdb, []string{key}, quantity).Result()
	if err != nil {
		return false, false, fmt.Errorf("decrement stock script failed: %w", err)
	}

	status, isInt := result.(int64)
	if !isInt {
		return false, false, fmt.Errorf("unexpected script result type")
	}

	switch status {
	case 1:
		return true, true, nil
	case 0:
		return false, true, nil
	default:
		return false, false, nil
	}
}

// Restock atomically adds stock back (receive or decrement compensation)
func (c *Client) Restock(ctx context.Context, code string, quantity int) error {
	key := fmt.Sprintf("stock:%s", code)

	if _, err := c.restockScript.Run(ctx, c.rdb, []string{key}, quantity).Result(); err != nil {
		return fmt.Errorf("restock script failed: %w", err)
	}
	return nil
}

// SetStock overwrites the mirrored stock count for a product
func (c *Client) SetStock(ctx context.Context, code string, stock int) error {
	return c.rdb.Set(ctx, fmt.Sprintf("stock:%s", code), stock, 0).Err()
}

// DeleteStock drops the mirror entry for a removed product
func (c *Client) DeleteStock(ctx context.Context, code string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("stock:%s", code)).Err()
}

// AcquireLock acquires a distributed lock. Payments take a per-customer lock
// so two clerks cannot settle the same balance concurrently.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
