// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// defaults for every optional setting. A .env file is read first when present.
//
// # Configuration Structure
//
// Identity provider:
//
//	AUTH0_DOMAIN="https://screepsplus.auth0.com"
//	AUTH0_CLIENT_ID="..."
//	AUTH0_CLIENT_SECRET="..."
//
// Dashboard platform:
//
//	GRAFANA_URL="https://grafana.example.com"
//	GRAFANA_USERNAME="admin"
//	GRAFANA_PASSWORD="..."
//
// Datasource credentials:
//
//	JWT_ALGORITHM="HS256"
//	JWT_SECRET="..."
//
// Sync loop:
//
//	SYNC_INTERVAL="10s"
//	SYNC_RATE_LIMIT_BACKOFF="1s"
//	SYNC_RATE_LIMIT_RETRIES="5"
//	SYNC_IDENTITY_RPS="0"
//	SYNC_ADMIN_CACHE_TTL="0"
//	SYNC_RUN_ONCE="false"
//
// Observability settings:
//
//	SYNC_LOG_LEVEL="info"  # debug, info, warn, error
//	SYNC_OPS_ADDR=":9090"
//	SYNC_METRICS_ENABLED="true"
//	SYNC_OTEL_ENABLED="false"
//	SYNC_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Related Packages
//
//   - pkg/observability: Uses observability configuration
//   - pkg/reconcile: Uses sync loop configuration
package config
