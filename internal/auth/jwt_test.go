// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/paycorridor/internal/config"
)

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:       testSecret,
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		AdminUsername:   "admin",
		RevocationCache: config.CacheMemory,
	}
}

func TestNewJWTManager(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.SecurityConfig)
		wantErr bool
	}{
		{"valid", func(*config.SecurityConfig) {}, false},
		{"empty secret", func(c *config.SecurityConfig) { c.JWTSecret = "" }, true},
		{"short secret", func(c *config.SecurityConfig) { c.JWTSecret = "short" }, true},
		{"zero access ttl", func(c *config.SecurityConfig) { c.AccessTokenTTL = 0 }, true},
		{"zero refresh ttl", func(c *config.SecurityConfig) { c.RefreshTokenTTL = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testSecurityConfig()
			tt.mutate(cfg)
			_, err := NewJWTManager(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewJWTManager() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatal(err)
	}

	for _, typ := range []string{TokenTypeAccess, TokenTypeRefresh} {
		t.Run(typ, func(t *testing.T) {
			token, issued, err := m.GenerateToken("admin", typ)
			if err != nil {
				t.Fatalf("GenerateToken() error = %v", err)
			}
			claims, err := m.ValidateToken(token, typ)
			if err != nil {
				t.Fatalf("ValidateToken() error = %v", err)
			}
			if claims.Subject != "admin" || claims.Username != "admin" || claims.TokenType != typ {
				t.Errorf("claims = %+v", claims)
			}
			if claims.ID == "" || claims.ID != issued.ID {
				t.Errorf("jti = %q, issued %q", claims.ID, issued.ID)
			}
		})
	}
}

func TestGenerateToken_UniqueIDs(t *testing.T) {
	m, _ := NewJWTManager(testSecurityConfig())
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		_, c, err := m.GenerateToken("admin", TokenTypeRefresh)
		if err != nil {
			t.Fatal(err)
		}
		if seen[c.ID] {
			t.Fatalf("duplicate jti %s", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	m, _ := NewJWTManager(testSecurityConfig())
	access, _, _ := m.GenerateToken("admin", TokenTypeAccess)

	other, _ := NewJWTManager(&config.SecurityConfig{
		JWTSecret:       strings.Repeat("x", 40),
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	foreign, _, _ := other.GenerateToken("admin", TokenTypeAccess)

	expiredMgr, _ := NewJWTManager(testSecurityConfig())
	expiredMgr.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, _ := expiredMgr.GenerateToken("admin", TokenTypeAccess)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Username:  "admin",
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ID:        "x",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
		typ   string
	}{
		{"wrong type", access, TokenTypeRefresh},
		{"wrong secret", foreign, TokenTypeAccess},
		{"expired", expired, TokenTypeAccess},
		{"alg none", unsigned, TokenTypeAccess},
		{"garbage", "not.a.jwt", TokenTypeAccess},
		{"empty", "", TokenTypeAccess},
		{"tampered", access[:len(access)-2] + "xx", TokenTypeAccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateToken(tt.token, tt.typ)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
