// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/paycorridor/internal/config"
)

// ErrCacheClosed is returned by a revocation cache after Close.
var ErrCacheClosed = errors.New("revocation cache is closed")

// RevocationCache remembers revoked token IDs until the token would have
// expired anyway.
//
// Client state lives in the cache value itself: Init opens connections and
// Close releases them. Calling any other method before Init is an error.
type RevocationCache interface {
	Init(ctx context.Context) error
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Close() error
}

// NewRevocationCache builds the backend selected by cfg.RevocationCache.
// The returned cache is not yet initialized.
func NewRevocationCache(cfg *config.SecurityConfig) (RevocationCache, error) {
	switch cfg.RevocationCache {
	case "", config.CacheMemory:
		return NewMemoryRevocationCache(), nil
	case config.CacheBadger:
		return NewBadgerRevocationCache(cfg.BadgerPath), nil
	case config.CacheRedis:
		return NewRedisRevocationCache(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	default:
		return nil, fmt.Errorf("unknown revocation cache %q", cfg.RevocationCache)
	}
}

// MemoryRevocationCache keeps revocations in process memory. Entries are
// lost on restart, so it suits single-instance deployments and tests.
type MemoryRevocationCache struct {
	mu      sync.Mutex
	entries map[string]time.Time // jti -> expiry
	ready   bool
	now     func() time.Time
}

// NewMemoryRevocationCache creates an in-memory cache.
func NewMemoryRevocationCache() *MemoryRevocationCache {
	return &MemoryRevocationCache{now: time.Now}
}

// Init implements RevocationCache.
func (c *MemoryRevocationCache) Init(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]time.Time)
	c.ready = true
	return nil
}

// Revoke implements RevocationCache. Expired entries are swept on write.
func (c *MemoryRevocationCache) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return ErrCacheClosed
	}
	now := c.now()
	for k, exp := range c.entries {
		if !now.Before(exp) {
			delete(c.entries, k)
		}
	}
	c.entries[jti] = now.Add(ttl)
	return nil
}

// IsRevoked implements RevocationCache.
func (c *MemoryRevocationCache) IsRevoked(_ context.Context, jti string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return false, ErrCacheClosed
	}
	exp, ok := c.entries[jti]
	return ok && c.now().Before(exp), nil
}

// Close implements RevocationCache.
func (c *MemoryRevocationCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	c.entries = nil
	return nil
}
