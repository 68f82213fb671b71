// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.validateSecrets(); err != nil {
		return err
	}

	if err := c.validateScheduler(); err != nil {
		return err
	}

	if err := c.validateNotify(); err != nil {
		return err
	}

	if err := c.validateAPI(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates HTTP server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout < time.Second || c.Server.Timeout > 10*time.Minute {
		return fmt.Errorf("HTTP_TIMEOUT must be between 1s and 10m")
	}
	return nil
}

// validateDatabase validates metadata store configuration
func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.Database.BusyTimeout < 0 || c.Database.BusyTimeout > time.Minute {
		return fmt.Errorf("DATABASE_BUSY_TIMEOUT must be between 0 and 1m")
	}
	return nil
}

// validateStorage validates filesystem layout configuration
func (c *Config) validateStorage() error {
	if c.Storage.BackupDir == "" {
		return fmt.Errorf("BACKUP_DIR is required")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	return nil
}

// validateSecrets validates the credential sealing secret. The secret is
// always required because target credentials are sealed before storage.
func (c *Config) validateSecrets() error {
	if c.Secrets.Key == "" {
		return fmt.Errorf("SECRET_KEY is required - generate one with: openssl rand -base64 32")
	}
	if len(c.Secrets.Key) < 16 {
		return fmt.Errorf("SECRET_KEY must be at least 16 characters")
	}
	if containsPlaceholder(c.Secrets.Key) {
		return fmt.Errorf("SECRET_KEY contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// Scheduler limit constants
const (
	minCheckInterval     = time.Second
	maxCheckInterval     = 10 * time.Minute
	minReconcileInterval = 10 * time.Second
	maxReconcileInterval = time.Hour
	maxConcurrentLimit   = 32
	minExecutionTimeout  = 10 * time.Second
	maxExecutionTimeout  = 2 * time.Hour
	maxMissedFireGrace   = 24 * time.Hour
)

// validateScheduler validates scheduler configuration (only if enabled)
func (c *Config) validateScheduler() error {
	if !c.Scheduler.Enabled {
		return nil
	}

	validators := []func() error{
		c.validateCheckInterval,
		c.validateReconcileInterval,
		c.validateMaxConcurrent,
		c.validateExecutionTimeout,
		c.validateMissedFireGrace,
		c.validateRetentionTime,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// validateCheckInterval validates the trigger evaluation cadence
func (c *Config) validateCheckInterval() error {
	if c.Scheduler.CheckInterval < minCheckInterval || c.Scheduler.CheckInterval > maxCheckInterval {
		return fmt.Errorf("SCHEDULER_CHECK_INTERVAL must be between 1s and 10m")
	}
	return nil
}

// validateReconcileInterval validates the target refresh cadence
func (c *Config) validateReconcileInterval() error {
	if c.Scheduler.ReconcileInterval < minReconcileInterval || c.Scheduler.ReconcileInterval > maxReconcileInterval {
		return fmt.Errorf("SCHEDULER_RECONCILE_INTERVAL must be between 10s and 1h")
	}
	return nil
}

// validateMaxConcurrent validates the worker pool bound
func (c *Config) validateMaxConcurrent() error {
	if c.Scheduler.MaxConcurrent < 1 || c.Scheduler.MaxConcurrent > maxConcurrentLimit {
		return fmt.Errorf("SCHEDULER_MAX_CONCURRENT must be between 1 and 32")
	}
	return nil
}

// validateExecutionTimeout validates the per-backup timeout
func (c *Config) validateExecutionTimeout() error {
	if c.Scheduler.ExecutionTimeout < minExecutionTimeout || c.Scheduler.ExecutionTimeout > maxExecutionTimeout {
		return fmt.Errorf("SCHEDULER_EXECUTION_TIMEOUT must be between 10s and 2h")
	}
	return nil
}

// validateMissedFireGrace validates the missed-fire catch-up window
func (c *Config) validateMissedFireGrace() error {
	if c.Scheduler.MissedFireGrace < 0 || c.Scheduler.MissedFireGrace > maxMissedFireGrace {
		return fmt.Errorf("SCHEDULER_MISSED_FIRE_GRACE must be between 0 and 24h")
	}
	return nil
}

// validateRetentionTime validates the daily retention sweep time
func (c *Config) validateRetentionTime() error {
	if _, err := time.Parse("15:04", c.Scheduler.RetentionTime); err != nil {
		return fmt.Errorf("RETENTION_TIME must be in HH:MM format (e.g., 04:00)")
	}
	return nil
}

// validateNotify validates notification configuration (only if enabled)
func (c *Config) validateNotify() error {
	if !c.Notify.Enabled {
		return nil
	}

	for _, u := range c.Notify.WebhookURLs {
		if err := validateWebhookURL(u, "NOTIFY_WEBHOOK_URLS"); err != nil {
			return err
		}
	}
	for _, u := range c.Notify.DiscordURLs {
		if err := validateWebhookURL(u, "NOTIFY_DISCORD_URLS"); err != nil {
			return err
		}
	}
	for _, u := range c.Notify.SlackURLs {
		if err := validateWebhookURL(u, "NOTIFY_SLACK_URLS"); err != nil {
			return err
		}
	}

	if c.Notify.Timeout < time.Second || c.Notify.Timeout > time.Minute {
		return fmt.Errorf("NOTIFY_TIMEOUT must be between 1s and 1m")
	}
	if c.Notify.RatePerMinute < 1 || c.Notify.RatePerMinute > 600 {
		return fmt.Errorf("NOTIFY_RATE_PER_MINUTE must be between 1 and 600")
	}
	return nil
}

// API limit constants
const (
	maxPageSizeLimit     = 1000
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateAPI validates HTTP API configuration
func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be between 1 and API_MAX_PAGE_SIZE")
	}
	if c.API.MaxPageSize < 1 || c.API.MaxPageSize > maxPageSizeLimit {
		return fmt.Errorf("API_MAX_PAGE_SIZE must be between 1 and 1000")
	}
	return c.validateRateLimits()
}

// validateRateLimits validates rate limiting configuration bounds
func (c *Config) validateRateLimits() error {
	if c.API.RateLimitDisabled {
		return nil
	}

	if c.API.RateLimitReqs < minRateLimitRequests || c.API.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.API.RateLimitWindow < minRateLimitWindow || c.API.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

// validateWebhookURL validates a notification endpoint URL. Unlike appliance
// base URLs, webhook URLs routinely carry paths, so only scheme and host are
// constrained.
func validateWebhookURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s contains an unparseable URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	return nil
}

// placeholderPatterns defines common placeholder patterns that indicate
// the user forgot to set a real value.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
	"EXAMPLE",
}

// containsPlaceholder checks if a value contains common placeholder patterns.
// This prevents accidental deployment with insecure default secrets.
func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upperValue, pattern) {
			return true
		}
	}
	return false
}
