// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all HTTP endpoints.
//
// Status field values:
//   - "success": request completed, see Data
//   - "error": request failed, see Error
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "TLS_ERROR",
//	    "message": "certificate verification failed",
//	    "details": {"hint": "TLS verification can be disabled per target"}
//	  },
//	  "metadata": {"timestamp": "2026-08-24T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError carries structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: invalid input parameters
//   - NOT_FOUND: resource doesn't exist
//   - CONNECTION_ERROR / TLS_ERROR / AUTH_ERROR / PROTOCOL_ERROR: appliance
//     call failure classes from the session client
//   - INTEGRITY_ERROR: artifact checksum mismatch
//   - TARGET_MISSING: record's owning target no longer exists
//   - STORE_ERROR: metadata store failure
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PageInfo contains offset pagination metadata for record listings.
type PageInfo struct {
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	TotalCount int  `json:"total_count"`
	HasMore    bool `json:"has_more"`
}

// RecordsResponse wraps artifact records with pagination info.
type RecordsResponse struct {
	Records    []ArtifactRecord `json:"records"`
	Pagination PageInfo         `json:"pagination"`
}

// HealthStatus reports service liveness for external probes.
//
// Status is "healthy" when the store answers and the scheduler heartbeat is
// fresh, otherwise "degraded". HeartbeatAge is seconds since the scheduler's
// last reconciliation tick; the heartbeat advances every tick even when no
// jobs fire.
type HealthStatus struct {
	Status           string     `json:"status"`
	Version          string     `json:"version"`
	StoreConnected   bool       `json:"store_connected"`
	SchedulerRunning bool       `json:"scheduler_running"`
	ScheduledJobs    int        `json:"scheduled_jobs"`
	HeartbeatAt      *time.Time `json:"heartbeat_at,omitempty"`
	HeartbeatAge     float64    `json:"heartbeat_age_seconds"`
	Uptime           float64    `json:"uptime_seconds"`
}
