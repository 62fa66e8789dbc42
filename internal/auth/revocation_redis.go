// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisRevocationPrefix = "paycorridor:revoked:"

// RedisOptions selects the Redis server.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisRevocationCache shares revocations between API instances. Keys expire
// with the token, so Redis needs no cleanup.
type RedisRevocationCache struct {
	opts RedisOptions

	mu     sync.RWMutex
	client *redis.Client
}

// NewRedisRevocationCache creates a cache for the given server.
func NewRedisRevocationCache(opts RedisOptions) *RedisRevocationCache {
	return &RedisRevocationCache{opts: opts}
}

// Init connects and pings the server.
func (c *RedisRevocationCache) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.opts.Addr,
		Password: c.opts.Password,
		DB:       c.opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis at %s: %w", c.opts.Addr, err)
	}
	c.client = client
	return nil
}

func (c *RedisRevocationCache) handle() (*redis.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return nil, ErrCacheClosed
	}
	return c.client, nil
}

// Revoke implements RevocationCache.
func (c *RedisRevocationCache) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	client, err := c.handle()
	if err != nil {
		return err
	}
	if err := client.Set(ctx, redisRevocationPrefix+jti, time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke %s: %w", jti, err)
	}
	return nil
}

// IsRevoked implements RevocationCache.
func (c *RedisRevocationCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	client, err := c.handle()
	if err != nil {
		return false, err
	}
	n, err := client.Exists(ctx, redisRevocationPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("redis lookup %s: %w", jti, err)
	}
	return n > 0, nil
}

// Close implements RevocationCache.
func (c *RedisRevocationCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
