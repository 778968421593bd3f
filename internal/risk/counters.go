package risk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const counterTTL = 24 * time.Hour

// CounterStore is the slice of the Redis client the counters need.
type CounterStore interface {
	Get(ctx context.Context, key string) (string, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	CounterKey(name string) string
}

// RedisCounters tracks per-seller daily order volume in Redis. Keys roll
// over with the UTC date, so a missing key simply means zero orders today.
type RedisCounters struct {
	store CounterStore
	now   func() time.Time
}

// NewRedisCounters wires the counter store.
func NewRedisCounters(store CounterStore, now func() time.Time) (*RedisCounters, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store required")
	}
	if now == nil {
		now = time.Now
	}
	return &RedisCounters{store: store, now: now}, nil
}

func (c *RedisCounters) OrdersToday(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	return c.read(ctx, c.ordersKey(sellerID))
}

func (c *RedisCounters) CODOrdersToday(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	return c.read(ctx, c.codOrdersKey(sellerID))
}

func (c *RedisCounters) IncrOrdersToday(ctx context.Context, sellerID uuid.UUID) error {
	_, err := c.store.IncrWithTTL(ctx, c.ordersKey(sellerID), counterTTL)
	return err
}

func (c *RedisCounters) IncrCODOrdersToday(ctx context.Context, sellerID uuid.UUID) error {
	_, err := c.store.IncrWithTTL(ctx, c.codOrdersKey(sellerID), counterTTL)
	return err
}

func (c *RedisCounters) read(ctx context.Context, key string) (int64, error) {
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing counter %s: %w", key, err)
	}
	return count, nil
}

func (c *RedisCounters) ordersKey(sellerID uuid.UUID) string {
	return c.store.CounterKey(fmt.Sprintf("orders:%s:%s", sellerID, c.day()))
}

func (c *RedisCounters) codOrdersKey(sellerID uuid.UUID) string {
	return c.store.CounterKey(fmt.Sprintf("cod_orders:%s:%s", sellerID, c.day()))
}

func (c *RedisCounters) day() string {
	return c.now().UTC().Format("2006-01-02")
}
