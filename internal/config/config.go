// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package config

import (
	"time"

	"github.com/tomtom215/paycorridor/internal/models"
)

// Config is the complete application configuration.
type Config struct {
	Database    DatabaseConfig    `koanf:"database"`
	Ledger      LedgerConfig      `koanf:"ledger"`
	Ingestion   IngestionConfig   `koanf:"ingestion"`
	Aggregation AggregationConfig `koanf:"aggregation"`
	Retry       RetryConfig       `koanf:"retry"`
	Server      ServerConfig      `koanf:"server"`
	Security    SecurityConfig    `koanf:"security"`
	NATS        NATSConfig        `koanf:"nats"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// Storage drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects and tunes the payment/cursor/metric store.
type DatabaseConfig struct {
	Driver                 string `koanf:"driver"`
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"` // 0 = NumCPU
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
	PostgresDSN            string `koanf:"postgres_dsn"`
	PostgresMaxConns       int32  `koanf:"postgres_max_conns"`
}

// LedgerConfig configures the ledger RPC source.
type LedgerConfig struct {
	// Mock replaces the RPC source with a deterministic in-process generator.
	Mock              bool          `koanf:"mock"`
	MockPayments      int           `koanf:"mock_payments"`
	RPCEndpoint       string        `koanf:"rpc_endpoint"`
	NetworkPassphrase string        `koanf:"network_passphrase"`
	StartLedger       uint32        `koanf:"start_ledger"`
	PageLimit         uint          `koanf:"page_limit"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	RateLimit         float64       `koanf:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst         int           `koanf:"rate_burst"`
	Breaker           BreakerConfig `koanf:"breaker"`
}

// BreakerConfig tunes the circuit breaker around the ledger source.
type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// IngestionConfig bounds and schedules ingestion runs.
type IngestionConfig struct {
	Enabled    bool          `koanf:"enabled"`
	JobName    string        `koanf:"job_name"`
	MaxPages   int           `koanf:"max_pages"`   // 0 = unlimited
	TimeBudget time.Duration `koanf:"time_budget"` // 0 = unlimited
	LeaseTTL   time.Duration `koanf:"lease_ttl"`
	Corridor   string        `koanf:"corridor"` // corridor key function name
	Interval   time.Duration `koanf:"interval"`
}

// AggregationConfig holds the run parameters and schedule of aggregation.
type AggregationConfig struct {
	Enabled       bool          `koanf:"enabled"`
	IntervalHours int           `koanf:"interval_hours"`
	LookbackHours int           `koanf:"lookback_hours"`
	BatchSize     int           `koanf:"batch_size"`
	Interval      time.Duration `koanf:"interval"`
}

// RunConfig returns the pipeline parameters.
func (a AggregationConfig) RunConfig() models.AggregationConfig {
	return models.AggregationConfig{
		IntervalHours: a.IntervalHours,
		LookbackHours: a.LookbackHours,
		BatchSize:     a.BatchSize,
	}
}

// RetryConfig is the scheduler's retry policy for failed runs.
type RetryConfig struct {
	MaxTries        uint          `koanf:"max_tries"`
	InitialInterval time.Duration `koanf:"initial_interval"`
	MaxInterval     time.Duration `koanf:"max_interval"`
	Multiplier      float64       `koanf:"multiplier"`
	MaxElapsed      time.Duration `koanf:"max_elapsed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimit       int           `koanf:"rate_limit"` // requests per minute per IP
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// Revocation cache backends.
const (
	CacheMemory = "memory"
	CacheBadger = "badger"
	CacheRedis  = "redis"
)

// SecurityConfig configures operator authentication.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	AccessTokenTTL    time.Duration `koanf:"access_token_ttl"`
	RefreshTokenTTL   time.Duration `koanf:"refresh_token_ttl"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPasswordHash string        `koanf:"admin_password_hash"` // bcrypt
	RevocationCache   string        `koanf:"revocation_cache"`
	BadgerPath        string        `koanf:"badger_path"`
	RedisAddr         string        `koanf:"redis_addr"`
	RedisPassword     string        `koanf:"redis_password"`
	RedisDB           int           `koanf:"redis_db"`
}

// NATSConfig configures run-summary event publishing.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`

	// Embedded starts an in-process JetStream server and overrides URL
	// with its client address.
	Embedded     bool   `koanf:"embedded"`
	EmbeddedHost string `koanf:"embedded_host"`
	EmbeddedPort int    `koanf:"embedded_port"`
	StoreDir     string `koanf:"store_dir"`
}

// LoggingConfig mirrors logging.Config in a koanf-friendly shape.
type LoggingConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	Caller     bool   `koanf:"caller"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}
