// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

//go:build integration

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/paycorridor/internal/testinfra"
)

func TestRedisRevocationCache_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redisC, err := testinfra.NewRedisContainer(ctx, t)
	if err != nil {
		t.Fatalf("failed to start redis: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, redisC.Container)

	exerciseCache(t, NewRedisRevocationCache(RedisOptions{Addr: redisC.Addr}))

	t.Run("ttl", func(t *testing.T) {
		c := NewRedisRevocationCache(RedisOptions{Addr: redisC.Addr})
		if err := c.Init(ctx); err != nil {
			t.Fatal(err)
		}
		defer func() { _ = c.Close() }()

		if err := c.Revoke(ctx, "short", time.Second); err != nil {
			t.Fatal(err)
		}
		time.Sleep(1500 * time.Millisecond)
		if revoked, _ := c.IsRevoked(ctx, "short"); revoked {
			t.Error("entry still revoked after ttl")
		}
	})
}
