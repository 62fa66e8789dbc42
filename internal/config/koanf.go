// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/paycorridor/config.yaml",
	"/etc/paycorridor/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// TestnetPassphrase is the Stellar test network passphrase.
const TestnetPassphrase = "Test SDF Network ; September 2015"

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:                 DriverDuckDB,
			Path:                   "/data/paycorridor.duckdb",
			MaxMemory:              "1GB",
			PreserveInsertionOrder: true,
			PostgresMaxConns:       10,
		},
		Ledger: LedgerConfig{
			MockPayments:      100,
			RPCEndpoint:       "https://soroban-testnet.stellar.org",
			NetworkPassphrase: TestnetPassphrase,
			PageLimit:         10,
			RequestTimeout:    30 * time.Second,
			RateLimit:         5,
			RateBurst:         5,
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Ingestion: IngestionConfig{
			Enabled:    true,
			JobName:    "payment_ingestion",
			MaxPages:   50,
			TimeBudget: 2 * time.Minute,
			LeaseTTL:   5 * time.Minute,
			Corridor:   "asset_pair",
			Interval:   time.Minute,
		},
		Aggregation: AggregationConfig{
			Enabled:       true,
			IntervalHours: 1,
			LookbackHours: 24,
			BatchSize:     10000,
			Interval:      15 * time.Minute,
		},
		Retry: RetryConfig{
			MaxTries:        5,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     30 * time.Second,
			Multiplier:      2,
			MaxElapsed:      2 * time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       120,
		},
		Security: SecurityConfig{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			AdminUsername:   "admin",
			RevocationCache: CacheMemory,
			BadgerPath:      "/data/revocations",
		},
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://127.0.0.1:4222",
			Subject: "paycorridor.runs",

			EmbeddedHost: "127.0.0.1",
			EmbeddedPort: 4222,
			StoreDir:     "/data/nats",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing priority, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
// Variables not listed are ignored.
var envMappings = map[string]string{
	"db_driver":                  "database.driver",
	"duckdb_path":                "database.path",
	"duckdb_max_memory":          "database.max_memory",
	"duckdb_threads":             "database.threads",
	"postgres_dsn":               "database.postgres_dsn",
	"postgres_max_conns":         "database.postgres_max_conns",
	"ledger_mock":                "ledger.mock",
	"ledger_mock_payments":       "ledger.mock_payments",
	"stellar_rpc_url":            "ledger.rpc_endpoint",
	"stellar_network_passphrase": "ledger.network_passphrase",
	"stellar_start_ledger":       "ledger.start_ledger",
	"ledger_page_limit":          "ledger.page_limit",
	"ledger_request_timeout":     "ledger.request_timeout",
	"ledger_rate_limit":          "ledger.rate_limit",
	"ledger_rate_burst":          "ledger.rate_burst",
	"ledger_breaker_enabled":     "ledger.breaker.enabled",
	"ingestion_enabled":          "ingestion.enabled",
	"ingestion_job_name":         "ingestion.job_name",
	"ingestion_max_pages":        "ingestion.max_pages",
	"ingestion_time_budget":      "ingestion.time_budget",
	"ingestion_lease_ttl":        "ingestion.lease_ttl",
	"ingestion_corridor":         "ingestion.corridor",
	"ingestion_interval":         "ingestion.interval",
	"aggregation_enabled":        "aggregation.enabled",
	"aggregation_interval_hours": "aggregation.interval_hours",
	"aggregation_lookback_hours": "aggregation.lookback_hours",
	"aggregation_batch_size":     "aggregation.batch_size",
	"aggregation_interval":       "aggregation.interval",
	"retry_max_tries":            "retry.max_tries",
	"retry_initial_interval":     "retry.initial_interval",
	"retry_max_interval":         "retry.max_interval",
	"retry_max_elapsed":          "retry.max_elapsed",
	"http_host":                  "server.host",
	"http_port":                  "server.port",
	"http_rate_limit":            "server.rate_limit",
	"cors_origins":               "server.cors_origins",
	"jwt_secret":                 "security.jwt_secret",
	"access_token_ttl":           "security.access_token_ttl",
	"refresh_token_ttl":          "security.refresh_token_ttl",
	"admin_username":             "security.admin_username",
	"admin_password_hash":        "security.admin_password_hash",
	"revocation_cache":           "security.revocation_cache",
	"revocation_badger_path":     "security.badger_path",
	"redis_addr":                 "security.redis_addr",
	"redis_password":             "security.redis_password",
	"redis_db":                   "security.redis_db",
	"nats_enabled":               "nats.enabled",
	"nats_url":                   "nats.url",
	"nats_subject":               "nats.subject",
	"nats_embedded":              "nats.embedded",
	"nats_embedded_host":         "nats.embedded_host",
	"nats_embedded_port":         "nats.embedded_port",
	"nats_store_dir":             "nats.store_dir",
	"log_level":                  "logging.level",
	"log_format":                 "logging.format",
	"log_caller":                 "logging.caller",
	"log_file":                   "logging.file",
}

// envTransformFunc maps an environment variable to its koanf path, or ""
// to skip it.
//
//   - DUCKDB_PATH -> database.path
//   - STELLAR_RPC_URL -> ledger.rpc_endpoint
//   - AGGREGATION_LOOKBACK_HOURS -> aggregation.lookback_hours
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
