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

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const badgerRevocationPrefix = "revoked:"

type revocationEntry struct {
	JTI       string    `json:"jti"`
	RevokedAt time.Time `json:"revoked_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BadgerRevocationCache stores revocations in BadgerDB with a per-key TTL,
// so they survive restarts. An empty path opens an in-memory instance.
type BadgerRevocationCache struct {
	path string

	mu sync.RWMutex
	db *badger.DB
}

// NewBadgerRevocationCache creates a cache stored under path.
func NewBadgerRevocationCache(path string) *BadgerRevocationCache {
	return &BadgerRevocationCache{path: path}
}

// Init opens the database.
func (c *BadgerRevocationCache) Init(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return nil
	}

	opts := badger.DefaultOptions(c.path)
	if c.path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open revocation store: %w", err)
	}
	c.db = db
	return nil
}

func (c *BadgerRevocationCache) handle() (*badger.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, ErrCacheClosed
	}
	return c.db, nil
}

// Revoke implements RevocationCache.
func (c *BadgerRevocationCache) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	db, err := c.handle()
	if err != nil {
		return err
	}
	now := time.Now()
	data, err := json.Marshal(revocationEntry{JTI: jti, RevokedAt: now, ExpiresAt: now.Add(ttl)})
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(badgerRevocationPrefix+jti), data).WithTTL(ttl))
	})
}

// IsRevoked implements RevocationCache.
func (c *BadgerRevocationCache) IsRevoked(_ context.Context, jti string) (bool, error) {
	db, err := c.handle()
	if err != nil {
		return false, err
	}
	var revoked bool
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerRevocationPrefix + jti))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var entry revocationEntry
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &entry); err != nil {
				return err
			}
			revoked = time.Now().Before(entry.ExpiresAt)
			return nil
		})
	})
	return revoked, err
}

// Close implements RevocationCache.
func (c *BadgerRevocationCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
