// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/paycorridor/internal/config"
	"github.com/tomtom215/paycorridor/internal/logging"
	"github.com/tomtom215/paycorridor/internal/metrics"
	"github.com/tomtom215/paycorridor/internal/models"
)

// ErrInvalidCredentials is returned by Login for an unknown user or a wrong
// password. The two cases are not distinguished.
var ErrInvalidCredentials = errors.New("invalid username or password")

// dummyHash is compared against when the username does not match, so both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("paycorridor-dummy-password"), bcrypt.MinCost)

// Service authenticates the operator account and manages token pairs.
type Service struct {
	jwt          *JWTManager
	cache        RevocationCache
	username     string
	passwordHash []byte
}

// NewService creates an auth service. An empty password hash disables login.
func NewService(cfg *config.SecurityConfig, jwtManager *JWTManager, cache RevocationCache) (*Service, error) {
	var hash []byte
	if cfg.AdminPasswordHash != "" {
		hash = []byte(cfg.AdminPasswordHash)
		if _, err := bcrypt.Cost(hash); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
	}
	return &Service{
		jwt:          jwtManager,
		cache:        cache,
		username:     cfg.AdminUsername,
		passwordHash: hash,
	}, nil
}

// Login checks the credentials and issues a new token pair.
func (s *Service) Login(ctx context.Context, username, password string) (pair *models.TokenPair, err error) {
	defer func() { metrics.RecordAuthAttempt("login", err) }()

	if s.passwordHash == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	hash := s.passwordHash
	if !userOK {
		hash = dummyHash
	}
	passOK := bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
	if !userOK || !passOK {
		logging.Ctx(ctx).Warn().Str("username", username).Msg("Failed login attempt")
		return nil, ErrInvalidCredentials
	}

	logging.Ctx(ctx).Info().Str("username", username).Msg("Operator logged in")
	return s.issuePair(username)
}

// Refresh exchanges a valid refresh token for a new pair and revokes the
// old refresh token, so each refresh token works once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (pair *models.TokenPair, err error) {
	defer func() { metrics.RecordAuthAttempt("refresh", err) }()

	claims, err := s.validate(ctx, refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Revoke(ctx, claims.ID, s.jwt.remaining(claims)); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return s.issuePair(claims.Subject)
}

// Logout revokes a refresh token. Access tokens already issued stay valid
// until they expire.
func (s *Service) Logout(ctx context.Context, refreshToken string) (err error) {
	defer func() { metrics.RecordAuthAttempt("logout", err) }()

	claims, err := s.validate(ctx, refreshToken, TokenTypeRefresh)
	if err != nil {
		return err
	}
	if err := s.cache.Revoke(ctx, claims.ID, s.jwt.remaining(claims)); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	logging.Ctx(ctx).Info().Str("username", claims.Subject).Msg("Operator logged out")
	return nil
}

// Authenticate validates an access token.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Claims, error) {
	return s.validate(ctx, accessToken, TokenTypeAccess)
}

func (s *Service) validate(ctx context.Context, token, tokenType string) (*Claims, error) {
	claims, err := s.jwt.ValidateToken(token, tokenType)
	if err != nil {
		return nil, err
	}
	revoked, err := s.cache.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}
	return claims, nil
}

func (s *Service) issuePair(username string) (*models.TokenPair, error) {
	access, accessClaims, err := s.jwt.GenerateToken(username, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.jwt.GenerateToken(username, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresAt:    accessClaims.ExpiresAt.Time,
	}, nil
}
