// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

// Package config loads and validates daemon configuration with koanf,
// layering struct defaults, an optional YAML file and environment
// variables, in that order.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from environment variables
// and an optional YAML config file.
//
// Loading order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config file: optional YAML file (config.yaml) for persistent settings
//  3. Environment variables: override any setting
//
// Thread safety: Config is immutable after Load() and safe for concurrent
// read access from multiple goroutines.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Storage   StorageConfig   `koanf:"storage"`
	Secrets   SecretsConfig   `koanf:"secrets"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Notify    NotifyConfig    `koanf:"notify"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment variables:
//   - HTTP_HOST: Listen address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8395)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
//   - ENVIRONMENT: "development" or "production" (default: development)
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds metadata store settings. The store is a single SQLite
// file; WAL and busy_timeout are applied at open.
//
// Environment variables:
//   - DATABASE_PATH: SQLite file path (default: /data/checkpoint.db)
//   - DATABASE_BUSY_TIMEOUT: SQLite busy_timeout (default: 5s)
type DatabaseConfig struct {
	Path        string        `koanf:"path"`
	BusyTimeout time.Duration `koanf:"busy_timeout"`
}

// StorageConfig holds filesystem layout settings.
//
// BackupDir receives backup archives; DataDir holds operational state such as
// the scheduler fire journal (<data_dir>/journal).
//
// Environment variables:
//   - BACKUP_DIR: Archive directory (default: /data/backups)
//   - DATA_DIR: Operational state directory (default: /data)
type StorageConfig struct {
	BackupDir string `koanf:"backup_dir"`
	DataDir   string `koanf:"data_dir"`
}

// SecretsConfig holds the operator secret used to derive the credential
// sealing key. Rotating it invalidates every stored target credential.
//
// Environment variables:
//   - SECRET_KEY: Operator secret, 16+ characters (required)
type SecretsConfig struct {
	Key string `koanf:"key"`
}

// SchedulerConfig holds backup scheduling settings.
//
// Environment variables:
//   - SCHEDULER_ENABLED: Enable the scheduler (default: true)
//   - SCHEDULER_CHECK_INTERVAL: Trigger evaluation cadence (default: 30s)
//   - SCHEDULER_RECONCILE_INTERVAL: Target set refresh cadence (default: 5m)
//   - SCHEDULER_MAX_CONCURRENT: Concurrent backup executions (default: 4)
//   - SCHEDULER_EXECUTION_TIMEOUT: Per-backup timeout (default: 10m)
//   - SCHEDULER_MISSED_FIRE_GRACE: Catch-up window for missed fires (default: 1h)
//   - RETENTION_TIME: Daily retention sweep time HH:MM (default: 04:00)
type SchedulerConfig struct {
	Enabled           bool          `koanf:"enabled"`
	CheckInterval     time.Duration `koanf:"check_interval"`
	ReconcileInterval time.Duration `koanf:"reconcile_interval"`
	MaxConcurrent     int           `koanf:"max_concurrent"`
	ExecutionTimeout  time.Duration `koanf:"execution_timeout"`
	MissedFireGrace   time.Duration `koanf:"missed_fire_grace"`
	RetentionTime     string        `koanf:"retention_time"`
}

// NotifyConfig holds notification delivery settings. Endpoint lists accept
// comma-separated URLs from the environment or YAML lists.
//
// Environment variables:
//   - NOTIFY_ENABLED: Enable notifications (default: true)
//   - NOTIFY_ON_SUCCESS: Notify on successful backups (default: false)
//   - NOTIFY_ON_FAILURE: Notify on failed backups (default: true)
//   - NOTIFY_ON_CONNECTION_LOST: Notify when an appliance is unreachable (default: true)
//   - NOTIFY_WEBHOOK_URLS: Generic JSON webhook URLs
//   - NOTIFY_DISCORD_URLS: Discord webhook URLs
//   - NOTIFY_SLACK_URLS: Slack webhook URLs
//   - NOTIFY_TIMEOUT: Per-delivery timeout (default: 10s)
//   - NOTIFY_RATE_PER_MINUTE: Delivery rate cap across endpoints (default: 30)
type NotifyConfig struct {
	Enabled          bool          `koanf:"enabled"`
	OnSuccess        bool          `koanf:"on_success"`
	OnFailure        bool          `koanf:"on_failure"`
	OnConnectionLost bool          `koanf:"on_connection_lost"`
	WebhookURLs      []string      `koanf:"webhook_urls"`
	DiscordURLs      []string      `koanf:"discord_urls"`
	SlackURLs        []string      `koanf:"slack_urls"`
	Timeout          time.Duration `koanf:"timeout"`
	RatePerMinute    int           `koanf:"rate_per_minute"`
}

// HasEndpoints reports whether any delivery endpoint is configured.
func (n NotifyConfig) HasEndpoints() bool {
	return len(n.WebhookURLs)+len(n.DiscordURLs)+len(n.SlackURLs) > 0
}

// APIConfig holds HTTP API behavior settings.
//
// Environment variables:
//   - API_DEFAULT_PAGE_SIZE: Default list page size (default: 20)
//   - API_MAX_PAGE_SIZE: Maximum list page size (default: 100)
//   - RATE_LIMIT_REQUESTS: Requests allowed per window (default: 100)
//   - RATE_LIMIT_WINDOW: Rate limit window (default: 1m)
//   - DISABLE_RATE_LIMIT: Disable rate limiting (default: false)
//   - CORS_ORIGINS: Allowed CORS origins, comma-separated (default: *)
type APIConfig struct {
	DefaultPageSize   int           `koanf:"default_page_size"`
	MaxPageSize       int           `koanf:"max_page_size"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds log output settings.
//
// Environment variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: Include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
