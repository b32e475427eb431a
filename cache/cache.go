/*
Package cache puts a Redis read-through cache in front of the balance service.

PURPOSE:
  Monthly balances are recomputed from scratch on every call. The HTTP
  layer can read them through BalanceCache instead, which keeps the JSON
  result in Redis for a short TTL.

RULES:
  - A nil Redis client turns the decorator into a pass-through.
  - Degraded balances (a fetch failed) are never stored.
  - Redis failures are logged and the inner service answers instead.
  - Writes to clients, assignments or holidays call Purge.

KEYS:
  care-hours:balance:client:{userID}:{yyyy-mm}
  care-hours:balance:worker:{workerID}:{yyyy-mm}

SEE ALSO:
  - balance/types.go: Service interface
  - api/handlers.go: calls Purge after writes
*/
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/warp/care-hours/balance"
	"github.com/warp/care-hours/config"
	"github.com/warp/care-hours/generic"
)

const keyPrefix = "care-hours:balance:"

// NewRedis returns a connected Redis client.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: time.Duration(cfg.DialTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// BalanceCache decorates a balance.Service.
type BalanceCache struct {
	inner  balance.Service
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ balance.Service = (*BalanceCache)(nil)

// NewBalanceCache wraps inner. client may be nil.
func NewBalanceCache(inner balance.Service, client *redis.Client, ttl time.Duration, logger *zap.Logger) *BalanceCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &BalanceCache{inner: inner, client: client, ttl: ttl, logger: logger}
}

func clientKey(id generic.ClientID, year, month int) string {
	return fmt.Sprintf("%sclient:%s:%04d-%02d", keyPrefix, id, year, month)
}

func workerKey(id generic.WorkerID, year, month int) string {
	return fmt.Sprintf("%sworker:%s:%04d-%02d", keyPrefix, id, year, month)
}

func (c *BalanceCache) MonthlyBalance(ctx context.Context, userID generic.ClientID, year, month int) (*balance.UserMonthlyBalance, error) {
	if err := generic.ValidMonth(year, month); err != nil {
		return nil, err
	}
	key := clientKey(userID, year, month)

	var cached balance.UserMonthlyBalance
	if c.get(ctx, key, &cached) {
		return &cached, nil
	}

	b, err := c.inner.MonthlyBalance(ctx, userID, year, month)
	if err != nil || b == nil || b.Degraded {
		return b, err
	}
	c.set(ctx, key, b)
	return b, nil
}

func (c *BalanceCache) WorkerClientsBalance(ctx context.Context, workerID generic.WorkerID, year, month int) ([]balance.WorkerClientBalance, error) {
	if err := generic.ValidMonth(year, month); err != nil {
		return nil, err
	}
	key := workerKey(workerID, year, month)

	var cached []balance.WorkerClientBalance
	if c.get(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := c.inner.WorkerClientsBalance(ctx, workerID, year, month)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.Degraded {
			return rows, nil
		}
	}
	c.set(ctx, key, rows)
	return rows, nil
}

// Purge drops every cached balance.
func (c *BalanceCache) Purge(ctx context.Context) error {
	if c.client == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := c.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s*: %w", keyPrefix, err)
	}
	return nil
}

// get reports a hit. Misses and errors both fall through to the inner
// service.
func (c *BalanceCache) get(ctx context.Context, key string, dest any) bool {
	if c.client == nil {
		return false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("balance cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("balance cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *BalanceCache) set(ctx context.Context, key string, value any) {
	if c.client == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("balance cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("balance cache write failed", zap.String("key", key), zap.Error(err))
	}
}
