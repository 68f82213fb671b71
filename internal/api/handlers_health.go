// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/checkpoint/internal/models"
)

// healthReport assembles the shared health view. A zero heartbeat means
// the scheduler has not completed a cycle yet.
func (h *Handler) healthReport(r *http.Request) *models.HealthStatus {
	status := &models.HealthStatus{
		Status:        "healthy",
		Version:       h.version,
		ScheduledJobs: h.scheduler.Jobs(),
		Uptime:        time.Since(h.startedAt).Seconds(),
	}

	status.StoreConnected = h.store.Ping(r.Context()) == nil

	heartbeat := h.scheduler.Heartbeat()
	staleAfter := 3 * h.config.Scheduler.CheckInterval
	if !heartbeat.IsZero() {
		at := heartbeat
		status.HeartbeatAt = &at
		status.HeartbeatAge = time.Since(heartbeat).Seconds()
		status.SchedulerRunning = time.Since(heartbeat) <= staleAfter
	}

	schedulerHealthy := status.SchedulerRunning || !h.config.Scheduler.Enabled
	if !status.StoreConnected || !schedulerHealthy {
		status.Status = "degraded"
	}

	return status
}

// Health reports the full service state. It always answers 200; clients
// inspect the status field. Load balancer decisions belong on /health/ready.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.healthReport(r))
}

// HealthLive answers 200 whenever the process can serve requests at all.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady answers 200 only when the store responds and the scheduler
// heartbeat is fresh, otherwise 503 so orchestrators hold traffic.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	report := h.healthReport(r)
	if report.Status != "healthy" {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     report,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error: &models.APIError{
				Code:    "NOT_READY",
				Message: "service dependencies are not ready",
			},
		})
		return
	}
	respondSuccess(w, http.StatusOK, report)
}
