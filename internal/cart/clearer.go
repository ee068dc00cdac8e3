package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/config"
)

// Clearer removes a user's cart after their checkout is finalized. The cart
// itself is owned by the cart service; this side of the contract only
// deletes. Best-effort: a failed clear never rolls back an order.
type Clearer struct {
	client *redis.Client
	logger *zap.Logger
}

// NewClearer creates a redis-backed cart clearer
func NewClearer(cfg config.RedisConfig, logger *zap.Logger) *Clearer {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Clearer{
		client: client,
		logger: logger,
	}
}

// Ping verifies the redis connection
func (c *Clearer) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	return nil
}

// Clear deletes the user's cart key
func (c *Clearer) Clear(ctx context.Context, userID uuid.UUID) error {
	key := fmt.Sprintf("cart:%s", userID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear cart for user %s: %w", userID, err)
	}
	return nil
}

// Close releases the redis connection
func (c *Clearer) Close() error {
	return c.client.Close()
}
