// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package config

import (
	"fmt"
	"strings"
)

// MinJWTSecretLength is the minimum accepted HMAC secret length.
const MinJWTSecretLength = 32

// maxLedgerPageLimit is the largest getLedgers page the RPC server accepts.
const maxLedgerPageLimit = 200

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateDatabase,
		c.validateLedger,
		c.validateIngestion,
		c.validateAggregation,
		c.validateRetry,
		c.validateServer,
		c.validateSecurity,
		c.validateNATS,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverDuckDB:
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required when DB_DRIVER=duckdb")
		}
	case DriverPostgres:
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		if c.Database.PostgresMaxConns < 1 {
			return fmt.Errorf("POSTGRES_MAX_CONNS must be at least 1, got %d", c.Database.PostgresMaxConns)
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverDuckDB, DriverPostgres, c.Database.Driver)
	}
	return nil
}

func (c *Config) validateLedger() error {
	l := c.Ledger
	if l.Mock {
		if l.MockPayments < 1 {
			return fmt.Errorf("LEDGER_MOCK_PAYMENTS must be at least 1, got %d", l.MockPayments)
		}
		return nil
	}
	if l.RPCEndpoint == "" {
		return fmt.Errorf("STELLAR_RPC_URL is required unless LEDGER_MOCK=true")
	}
	if !strings.HasPrefix(l.RPCEndpoint, "http://") && !strings.HasPrefix(l.RPCEndpoint, "https://") {
		return fmt.Errorf("STELLAR_RPC_URL must start with http:// or https://, got %q", l.RPCEndpoint)
	}
	if l.NetworkPassphrase == "" {
		return fmt.Errorf("STELLAR_NETWORK_PASSPHRASE is required unless LEDGER_MOCK=true")
	}
	if l.PageLimit < 1 || l.PageLimit > maxLedgerPageLimit {
		return fmt.Errorf("LEDGER_PAGE_LIMIT must be between 1 and %d, got %d", maxLedgerPageLimit, l.PageLimit)
	}
	if l.RequestTimeout <= 0 {
		return fmt.Errorf("LEDGER_REQUEST_TIMEOUT must be positive, got %v", l.RequestTimeout)
	}
	if l.RateLimit < 0 {
		return fmt.Errorf("LEDGER_RATE_LIMIT must not be negative, got %v", l.RateLimit)
	}
	if l.Breaker.Enabled && (l.Breaker.FailureRatio <= 0 || l.Breaker.FailureRatio > 1) {
		return fmt.Errorf("ledger.breaker.failure_ratio must be in (0, 1], got %v", l.Breaker.FailureRatio)
	}
	return nil
}

func (c *Config) validateIngestion() error {
	in := c.Ingestion
	if in.JobName == "" {
		return fmt.Errorf("INGESTION_JOB_NAME must not be empty")
	}
	if in.MaxPages < 0 {
		return fmt.Errorf("INGESTION_MAX_PAGES must not be negative, got %d", in.MaxPages)
	}
	if in.TimeBudget < 0 {
		return fmt.Errorf("INGESTION_TIME_BUDGET must not be negative, got %v", in.TimeBudget)
	}
	if in.LeaseTTL <= 0 {
		return fmt.Errorf("INGESTION_LEASE_TTL must be positive, got %v", in.LeaseTTL)
	}
	if in.TimeBudget > 0 && in.LeaseTTL <= in.TimeBudget {
		return fmt.Errorf("INGESTION_LEASE_TTL (%v) must exceed INGESTION_TIME_BUDGET (%v)", in.LeaseTTL, in.TimeBudget)
	}
	if in.Enabled && in.Interval <= 0 {
		return fmt.Errorf("INGESTION_INTERVAL must be positive, got %v", in.Interval)
	}
	return nil
}

func (c *Config) validateAggregation() error {
	a := c.Aggregation
	if a.IntervalHours <= 0 {
		return fmt.Errorf("AGGREGATION_INTERVAL_HOURS must be positive, got %d", a.IntervalHours)
	}
	if a.LookbackHours <= 0 {
		return fmt.Errorf("AGGREGATION_LOOKBACK_HOURS must be positive, got %d", a.LookbackHours)
	}
	if a.BatchSize <= 0 {
		return fmt.Errorf("AGGREGATION_BATCH_SIZE must be positive, got %d", a.BatchSize)
	}
	if a.Enabled && a.Interval <= 0 {
		return fmt.Errorf("AGGREGATION_INTERVAL must be positive, got %v", a.Interval)
	}
	return nil
}

func (c *Config) validateRetry() error {
	r := c.Retry
	if r.InitialInterval <= 0 {
		return fmt.Errorf("RETRY_INITIAL_INTERVAL must be positive, got %v", r.InitialInterval)
	}
	if r.MaxInterval < r.InitialInterval {
		return fmt.Errorf("RETRY_MAX_INTERVAL (%v) must be >= RETRY_INITIAL_INTERVAL (%v)", r.MaxInterval, r.InitialInterval)
	}
	if r.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be >= 1, got %v", r.Multiplier)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT must not be negative, got %d", c.Server.RateLimit)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	s := c.Security
	if len(s.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength)
	}
	if s.AccessTokenTTL <= 0 || s.RefreshTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL and REFRESH_TOKEN_TTL must be positive")
	}
	if s.AdminPasswordHash != "" && !strings.HasPrefix(s.AdminPasswordHash, "$2") {
		return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash")
	}
	switch s.RevocationCache {
	case CacheMemory:
	case CacheBadger:
		if s.BadgerPath == "" {
			return fmt.Errorf("REVOCATION_BADGER_PATH is required when REVOCATION_CACHE=badger")
		}
	case CacheRedis:
		if s.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when REVOCATION_CACHE=redis")
		}
	default:
		return fmt.Errorf("REVOCATION_CACHE must be memory, badger or redis, got %q", s.RevocationCache)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.Embedded {
		if c.NATS.StoreDir == "" {
			return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
		}
		if c.NATS.EmbeddedPort < -1 || c.NATS.EmbeddedPort > 65535 {
			return fmt.Errorf("NATS_EMBEDDED_PORT %d is out of range", c.NATS.EmbeddedPort)
		}
	} else if c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true")
	}
	if c.NATS.Subject == "" {
		return fmt.Errorf("NATS_SUBJECT is required when NATS_ENABLED=true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
