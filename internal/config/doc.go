// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

/*
Package config loads PayCorridor configuration with koanf.

Sources, lowest to highest priority:

 1. Built-in defaults (defaultConfig)
 2. YAML file: $CONFIG_PATH, else config.yaml / config.yml in the working
    directory, else /etc/paycorridor/config.yaml
 3. Environment variables listed in envMappings

Only JWT_SECRET has no usable default. A minimal local run:

	JWT_SECRET=$(openssl rand -hex 32) LEDGER_MOCK=true DUCKDB_PATH=./pc.duckdb ./paycorridor

Durations accept Go syntax ("90s", "5m"). Comma-separated values are split for
slice fields such as CORS_ORIGINS.
*/
package config
