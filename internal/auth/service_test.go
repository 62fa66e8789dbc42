// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package auth

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/paycorridor/internal/config"
)

const testPassword = "correct horse battery staple"

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	cfg := testSecurityConfig()
	cfg.AdminPasswordHash = string(hash)

	jwtManager, err := NewJWTManager(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cache := NewMemoryRevocationCache()
	if err := cache.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cache.Close() })

	svc, err := NewService(cfg, jwtManager, cache)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestNewService_RejectsBadHash(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.AdminPasswordHash = "$2a$not-a-hash"
	m, _ := NewJWTManager(cfg)
	if _, err := NewService(cfg, m, NewMemoryRevocationCache()); err == nil {
		t.Error("NewService() accepted an invalid bcrypt hash")
	}
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"valid", "admin", testPassword, nil},
		{"wrong password", "admin", "nope", ErrInvalidCredentials},
		{"unknown user", "root", testPassword, ErrInvalidCredentials},
		{"empty", "", "", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := svc.Login(ctx, tt.username, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if pair.AccessToken == "" || pair.RefreshToken == "" || pair.TokenType != "Bearer" {
				t.Errorf("pair = %+v", pair)
			}
			if _, err := svc.Authenticate(ctx, pair.AccessToken); err != nil {
				t.Errorf("Authenticate(access) error = %v", err)
			}
			if _, err := svc.Authenticate(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("refresh token accepted as access token: %v", err)
			}
		})
	}
}

func TestLogin_DisabledWithoutHash(t *testing.T) {
	cfg := testSecurityConfig()
	m, _ := NewJWTManager(cfg)
	svc, err := NewService(cfg, m, NewMemoryRevocationCache())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(context.Background(), "admin", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefresh_RotatesAndRevokes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, "admin", testPassword)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("Refresh() returned the same refresh token")
	}

	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reused refresh token error = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.Refresh(ctx, second.RefreshToken); err != nil {
		t.Errorf("new refresh token rejected: %v", err)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc := newTestService(t)
	pair, _ := svc.Login(context.Background(), "admin", testPassword)
	if _, err := svc.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Refresh(access) error = %v, want ErrInvalidToken", err)
	}
}

func TestLogout(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pair, _ := svc.Login(ctx, "admin", testPassword)

	if err := svc.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh after logout error = %v, want ErrInvalidToken", err)
	}
	if err := svc.Logout(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("second logout error = %v, want ErrInvalidToken", err)
	}
}

func TestService_CacheNotInitialized(t *testing.T) {
	cfg := testSecurityConfig()
	m, _ := NewJWTManager(cfg)
	svc, _ := NewService(cfg, m, NewMemoryRevocationCache())
	token, _, _ := m.GenerateToken("admin", TokenTypeAccess)

	_, err := svc.Authenticate(context.Background(), token)
	if err == nil || errors.Is(err, ErrInvalidToken) {
		t.Errorf("Authenticate() error = %v, want a cache error", err)
	}
	if !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Authenticate() error = %v, want ErrCacheClosed in chain", err)
	}
}

func TestNewRevocationCache(t *testing.T) {
	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{config.CacheMemory, "*auth.MemoryRevocationCache", false},
		{"", "*auth.MemoryRevocationCache", false},
		{config.CacheBadger, "*auth.BadgerRevocationCache", false},
		{config.CacheRedis, "*auth.RedisRevocationCache", false},
		{"memcached", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := testSecurityConfig()
			cfg.RevocationCache = tt.backend
			cache, err := NewRevocationCache(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewRevocationCache() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := typeName(cache); got != tt.want {
				t.Errorf("type = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *MemoryRevocationCache:
		return "*auth.MemoryRevocationCache"
	case *BadgerRevocationCache:
		return "*auth.BadgerRevocationCache"
	case *RedisRevocationCache:
		return "*auth.RedisRevocationCache"
	}
	return "unknown"
}
