// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

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

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/checkpoint/config.yaml",
	"/etc/checkpoint/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8395,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:        "/data/checkpoint.db",
			BusyTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			BackupDir: "/data/backups",
			DataDir:   "/data",
		},
		Secrets: SecretsConfig{
			Key: "",
		},
		Scheduler: SchedulerConfig{
			Enabled:           true,
			CheckInterval:     30 * time.Second,
			ReconcileInterval: 5 * time.Minute,
			MaxConcurrent:     4,
			ExecutionTimeout:  10 * time.Minute,
			MissedFireGrace:   time.Hour,
			RetentionTime:     "04:00",
		},
		Notify: NotifyConfig{
			Enabled:          true,
			OnSuccess:        false, // Success is the steady state; opt in to hear about it
			OnFailure:        true,
			OnConnectionLost: true,
			WebhookURLs:      []string{},
			DiscordURLs:      []string{},
			SlackURLs:        []string{},
			Timeout:          10 * time.Second,
			RatePerMinute:    30,
		},
		API: APIConfig{
			DefaultPageSize:   20,
			MaxPageSize:       100,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if exists)
//  3. Environment variables: override any setting
//
// Precedence: ENV > File > Defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// HTTP_PORT -> server.port
	// SCHEDULER_MAX_CONCURRENT -> scheduler.max_concurrent
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"notify.webhook_urls",
	"notify.discord_urls",
	"notify.slack_urls",
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known
// slice fields. Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		// If it's a string, split by comma
		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Variables may carry an optional CHECKPOINT_ prefix, so both HTTP_PORT and
// CHECKPOINT_HTTP_PORT map to server.port.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - DATABASE_PATH -> database.path
//   - SCHEDULER_MISSED_FIRE_GRACE -> scheduler.missed_fire_grace
//   - NOTIFY_DISCORD_URLS -> notify.discord_urls
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	key = strings.TrimPrefix(key, "checkpoint_")

	envMappings := map[string]string{
		// Server mappings
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Database mappings
		"database_path":         "database.path",
		"database_busy_timeout": "database.busy_timeout",

		// Storage mappings
		"backup_dir": "storage.backup_dir",
		"data_dir":   "storage.data_dir",

		// Secrets mappings
		"secret_key": "secrets.key",

		// Scheduler mappings
		"scheduler_enabled":            "scheduler.enabled",
		"scheduler_check_interval":     "scheduler.check_interval",
		"scheduler_reconcile_interval": "scheduler.reconcile_interval",
		"scheduler_max_concurrent":     "scheduler.max_concurrent",
		"scheduler_execution_timeout":  "scheduler.execution_timeout",
		"scheduler_missed_fire_grace":  "scheduler.missed_fire_grace",
		"retention_time":               "scheduler.retention_time",

		// Notification mappings
		"notify_enabled":            "notify.enabled",
		"notify_on_success":         "notify.on_success",
		"notify_on_failure":         "notify.on_failure",
		"notify_on_connection_lost": "notify.on_connection_lost",
		"notify_webhook_urls":       "notify.webhook_urls",
		"notify_discord_urls":       "notify.discord_urls",
		"notify_slack_urls":         "notify.slack_urls",
		"notify_timeout":            "notify.timeout",
		"notify_rate_per_minute":    "notify.rate_per_minute",

		// API mappings
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",
		"rate_limit_requests":   "api.rate_limit_reqs",
		"rate_limit_window":     "api.rate_limit_window",
		"disable_rate_limit":    "api.rate_limit_disabled",
		"cors_origins":          "api.cors_origins",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them.
	// This prevents random environment variables from polluting config.
	return ""
}
