// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Backup, restore, and retention outcomes
// - Scheduler health (jobs, fires, heartbeat)
// - Appliance API calls
// - Notification delivery and circuit breakers
// - Metadata store queries
// - HTTP API latency and throughput

var (
	// Backup Metrics
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backups_total",
			Help: "Total number of backup operations by outcome and trigger",
		},
		[]string{"status", "trigger"}, // status: "success", "failure"; trigger: "manual", "scheduled"
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_duration_seconds",
			Help:    "Duration of backup operations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600}, // Teleporter exports can take minutes
		},
	)

	BackupArchiveBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_archive_bytes",
			Help:    "Size of completed backup archives in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB .. ~256MiB
		},
	)

	BackupsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backups_in_flight",
			Help: "Current number of backup operations in progress",
		},
	)

	// Restore Metrics
	RestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restores_total",
			Help: "Total number of restore operations by outcome",
		},
		[]string{"status"},
	)

	// Retention Metrics
	RetentionDeletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_deletions_total",
			Help: "Total number of artifacts removed by retention policy",
		},
		[]string{"policy"}, // "count", "age", "failed", "orphan_file", "orphan_record"
	)

	RetentionSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retention_sweep_duration_seconds",
			Help:    "Duration of full retention sweeps in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RetentionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_errors_total",
			Help: "Total number of per-target retention failures",
		},
	)

	// Scheduler Metrics
	SchedulerJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_jobs",
			Help: "Current number of scheduled backup jobs",
		},
	)

	SchedulerLastTick = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_last_tick_timestamp",
			Help: "Unix timestamp of the last scheduler reconciliation tick",
		},
	)

	SchedulerFires = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_fires_total",
			Help: "Total number of trigger fires by disposition",
		},
		[]string{"disposition"}, // "run", "skipped_lock", "coalesced", "dropped"
	)

	SchedulerReconcileErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_reconcile_errors_total",
			Help: "Total number of failed reconciliation passes",
		},
	)

	// Appliance Client Metrics
	ApplianceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appliance_requests_total",
			Help: "Total number of appliance API calls by operation and outcome",
		},
		[]string{"operation", "outcome"}, // operation: "auth", "version", "download", "upload", "logout"
	)

	ApplianceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appliance_request_duration_seconds",
			Help:    "Duration of appliance API calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	ApplianceReauths = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "appliance_reauths_total",
			Help: "Total number of session re-authentications after a 401",
		},
	)

	ApplianceTransferBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appliance_transfer_bytes_total",
			Help: "Total bytes transferred to and from appliances",
		},
		[]string{"direction"}, // "download", "upload"
	)

	// Notification Metrics
	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Total number of notification delivery attempts by endpoint kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: "webhook", "discord", "slack"; outcome: "success", "failure", "rejected"
	)

	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_dropped_total",
			Help: "Total number of notification events dropped before delivery",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Metadata Store Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_query_duration_seconds",
			Help:    "Duration of metadata store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_query_errors_total",
			Help: "Total number of metadata store query errors",
		},
		[]string{"operation", "table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordBackup records a completed backup operation
func RecordBackup(trigger string, duration time.Duration, sizeBytes int64, err error) {
	BackupDuration.Observe(duration.Seconds())
	if err != nil {
		BackupsTotal.WithLabelValues("failure", trigger).Inc()
		return
	}
	BackupsTotal.WithLabelValues("success", trigger).Inc()
	BackupArchiveBytes.Observe(float64(sizeBytes))
}

// TrackBackupInFlight tracks backups currently executing
func TrackBackupInFlight(inc bool) {
	if inc {
		BackupsInFlight.Inc()
	} else {
		BackupsInFlight.Dec()
	}
}

// RecordRestore records a restore operation outcome
func RecordRestore(err error) {
	if err != nil {
		RestoresTotal.WithLabelValues("failure").Inc()
		return
	}
	RestoresTotal.WithLabelValues("success").Inc()
}

// RecordRetentionDeletions records artifacts removed under a retention policy
func RecordRetentionDeletions(policy string, count int) {
	if count > 0 {
		RetentionDeletions.WithLabelValues(policy).Add(float64(count))
	}
}

// RecordRetentionSweep records a full retention sweep
func RecordRetentionSweep(duration time.Duration, failures int) {
	RetentionSweepDuration.Observe(duration.Seconds())
	if failures > 0 {
		RetentionErrors.Add(float64(failures))
	}
}

// RecordSchedulerTick updates the heartbeat timestamp and job count gauge
func RecordSchedulerTick(jobs int) {
	SchedulerLastTick.Set(float64(time.Now().Unix()))
	SchedulerJobs.Set(float64(jobs))
}

// RecordFire records a trigger fire disposition
func RecordFire(disposition string) {
	SchedulerFires.WithLabelValues(disposition).Inc()
}

// RecordApplianceRequest records an appliance API call
func RecordApplianceRequest(operation string, duration time.Duration, err error) {
	ApplianceRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		ApplianceRequests.WithLabelValues(operation, "failure").Inc()
		return
	}
	ApplianceRequests.WithLabelValues(operation, "success").Inc()
}

// RecordApplianceTransfer records bytes moved to or from an appliance
func RecordApplianceTransfer(direction string, bytes int64) {
	if bytes > 0 {
		ApplianceTransferBytes.WithLabelValues(direction).Add(float64(bytes))
	}
}

// RecordNotification records a notification delivery attempt
func RecordNotification(kind, outcome string) {
	NotificationDeliveries.WithLabelValues(kind, outcome).Inc()
}

// RecordNotificationDropped counts an event lost before delivery
func RecordNotificationDropped() {
	NotificationsDropped.Inc()
}

// RecordCircuitBreakerTransition records a breaker state change and updates the state gauge
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	var state float64
	switch to {
	case "half-open":
		state = 1
	case "open":
		state = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordDBQuery records a metadata store query
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
