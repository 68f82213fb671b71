// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

/*
Package metrics provides Prometheus metrics collection and export for observability.

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8395/metrics

# Available Metrics

Backup lifecycle:
  - backups_total: Backup outcomes (counter)
    Labels: status (success, failure), trigger (manual, scheduled)
  - backup_duration_seconds: Backup duration (histogram)
  - backup_archive_bytes: Completed archive sizes (histogram)
  - backups_in_flight: Backups currently executing (gauge)
  - restores_total: Restore outcomes (counter)
    Labels: status

Retention:
  - retention_deletions_total: Artifacts removed (counter)
    Labels: policy (count, age, failed, orphan_file, orphan_record)
  - retention_sweep_duration_seconds: Full sweep duration (histogram)
  - retention_errors_total: Per-target sweep failures (counter)

Scheduler:
  - scheduler_jobs: Active scheduled jobs (gauge)
  - scheduler_last_tick_timestamp: Heartbeat, unix seconds (gauge)
  - scheduler_fires_total: Trigger fires (counter)
    Labels: disposition (run, skipped_lock, coalesced, dropped)
  - scheduler_reconcile_errors_total: Failed reconciliation passes (counter)

Appliance client:
  - appliance_requests_total: API calls (counter)
    Labels: operation (auth, version, download, upload, logout), outcome
  - appliance_request_duration_seconds: API call duration (histogram)
    Labels: operation
  - appliance_reauths_total: Session re-authentications after 401 (counter)
  - appliance_transfer_bytes_total: Payload bytes moved (counter)
    Labels: direction (download, upload)

Notifications:
  - notification_deliveries_total: Delivery attempts (counter)
    Labels: kind (webhook, discord, slack), outcome (success, failure, rejected)
  - notifications_dropped_total: Events dropped before delivery (counter)
  - circuit_breaker_state: Breaker state per endpoint (gauge)
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_state_transitions_total: Breaker transitions (counter)
    Labels: name, from_state, to_state

Store and API:
  - store_query_duration_seconds / store_query_errors_total
    Labels: operation, table
  - api_requests_total / api_request_duration_seconds / api_active_requests /
    api_rate_limit_hits_total

# Staleness Alerting

The scheduler heartbeat gauge supports a watchdog without any process
inspection:

	# Alert when the scheduler loop has not ticked for 5 minutes
	time() - scheduler_last_tick_timestamp > 300

# Thread Safety

All recording functions are safe for concurrent use from multiple goroutines;
the Prometheus client library handles synchronization internally.
*/
package metrics
