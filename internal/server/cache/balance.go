// Package cache keeps a Redis read cache of account balances in front of the
// ledger. The database stays the source of truth: the ledger refreshes the
// cache after every committed write and falls back to the database on any
// miss or Redis failure. A nil *BalanceCache is valid and always misses.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix = "token_balance:"
	cacheTTL  = 24 * time.Hour
)

type BalanceCache struct {
	rdb *redis.Client
}

func NewBalanceCache(rdb *redis.Client) *BalanceCache {
	return &BalanceCache{rdb: rdb}
}

// Get returns the cached balance for identity. The second result is false on
// a miss or any Redis error.
func (c *BalanceCache) Get(ctx context.Context, identity string) (int64, bool) {
	if c == nil {
		return 0, false
	}
	v, err := c.rdb.Get(ctx, Key(identity)).Result()
	if err != nil {
		return 0, false
	}
	balance, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return balance, true
}

// Set records the balance for identity. Failures are reported so the caller
// can log them; a stale entry self-heals after the TTL anyway.
func (c *BalanceCache) Set(ctx context.Context, identity string, balance int64) error {
	if c == nil {
		return nil
	}
	return c.rdb.Set(ctx, Key(identity), balance, cacheTTL).Err()
}

// Invalidate drops the cached balance for identity.
func (c *BalanceCache) Invalidate(ctx context.Context, identity string) error {
	if c == nil {
		return nil
	}
	err := c.rdb.Del(ctx, Key(identity)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Key returns the Redis key under which identity's balance is stored.
func Key(identity string) string {
	return keyPrefix + identity
}
