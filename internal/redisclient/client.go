package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fulfillment-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const orderTTL = 5 * time.Minute

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func orderKey(id string) string {
	return fmt.Sprintf("order:%s", id)
}

// GetOrder returns a cached order, or nil on a cache miss
func (c *Client) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	data, err := c.rdb.Get(ctx, orderKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read order from cache: %w", err)
	}

	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to decode cached order: %w", err)
	}
	return &order, nil
}

// SetOrder caches an order with a TTL
func (c *Client) SetOrder(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order for cache: %w", err)
	}
	return c.rdb.Set(ctx, orderKey(order.ID), data, orderTTL).Err()
}

// InvalidateOrder drops a cached order after a mutation
func (c *Client) InvalidateOrder(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, orderKey(id)).Err()
}
