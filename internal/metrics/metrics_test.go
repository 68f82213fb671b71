// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordBackup tests backup metric recording
func TestRecordBackup(t *testing.T) {
	tests := []struct {
		name      string
		trigger   string
		duration  time.Duration
		sizeBytes int64
		err       error
	}{
		{
			name:      "successful scheduled backup",
			trigger:   "scheduled",
			duration:  45 * time.Second,
			sizeBytes: 2 << 20,
			err:       nil,
		},
		{
			name:      "successful manual backup",
			trigger:   "manual",
			duration:  12 * time.Second,
			sizeBytes: 512 << 10,
			err:       nil,
		},
		{
			name:      "failed backup",
			trigger:   "scheduled",
			duration:  3 * time.Second,
			sizeBytes: 0,
			err:       errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordBackup(tt.trigger, tt.duration, tt.sizeBytes, tt.err)
		})
	}
}

// TestRecordBackup_CounterIncrements verifies the status/trigger labels move
func TestRecordBackup_CounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(BackupsTotal.WithLabelValues("success", "manual"))

	RecordBackup("manual", time.Second, 1024, nil)

	after := testutil.ToFloat64(BackupsTotal.WithLabelValues("success", "manual"))
	if after != before+1 {
		t.Errorf("backups_total{success,manual} = %v, want %v", after, before+1)
	}

	beforeFail := testutil.ToFloat64(BackupsTotal.WithLabelValues("failure", "manual"))
	RecordBackup("manual", time.Second, 0, errors.New("boom"))
	afterFail := testutil.ToFloat64(BackupsTotal.WithLabelValues("failure", "manual"))
	if afterFail != beforeFail+1 {
		t.Errorf("backups_total{failure,manual} = %v, want %v", afterFail, beforeFail+1)
	}
}

// TestTrackBackupInFlight tests the in-flight gauge pairing
func TestTrackBackupInFlight(t *testing.T) {
	before := testutil.ToFloat64(BackupsInFlight)

	TrackBackupInFlight(true)
	if got := testutil.ToFloat64(BackupsInFlight); got != before+1 {
		t.Errorf("backups_in_flight = %v after inc, want %v", got, before+1)
	}

	TrackBackupInFlight(false)
	if got := testutil.ToFloat64(BackupsInFlight); got != before {
		t.Errorf("backups_in_flight = %v after dec, want %v", got, before)
	}
}

// TestRecordRestore tests restore outcome recording
func TestRecordRestore(t *testing.T) {
	RecordRestore(nil)
	RecordRestore(errors.New("checksum mismatch"))
}

// TestRecordRetentionDeletions tests retention counters per policy
func TestRecordRetentionDeletions(t *testing.T) {
	policies := []string{"count", "age", "failed", "orphan_file", "orphan_record"}

	for _, policy := range policies {
		t.Run("policy_"+policy, func(t *testing.T) {
			before := testutil.ToFloat64(RetentionDeletions.WithLabelValues(policy))
			RecordRetentionDeletions(policy, 3)
			after := testutil.ToFloat64(RetentionDeletions.WithLabelValues(policy))
			if after != before+3 {
				t.Errorf("retention_deletions_total{%s} = %v, want %v", policy, after, before+3)
			}
		})
	}

	// Zero deletions should not create noise
	before := testutil.ToFloat64(RetentionDeletions.WithLabelValues("count"))
	RecordRetentionDeletions("count", 0)
	if got := testutil.ToFloat64(RetentionDeletions.WithLabelValues("count")); got != before {
		t.Errorf("retention_deletions_total{count} moved on zero count")
	}
}

// TestRecordSchedulerTick verifies the heartbeat gauge is set to now
func TestRecordSchedulerTick(t *testing.T) {
	RecordSchedulerTick(7)

	if got := testutil.ToFloat64(SchedulerJobs); got != 7 {
		t.Errorf("scheduler_jobs = %v, want 7", got)
	}

	tick := testutil.ToFloat64(SchedulerLastTick)
	now := float64(time.Now().Unix())
	if tick < now-5 || tick > now+1 {
		t.Errorf("scheduler_last_tick_timestamp = %v, want ~%v", tick, now)
	}
}

// TestRecordFire tests fire disposition recording
func TestRecordFire(t *testing.T) {
	dispositions := []string{"run", "skipped_lock", "coalesced", "dropped"}
	for _, d := range dispositions {
		RecordFire(d)
	}
}

// TestRecordApplianceRequest tests appliance call recording
func TestRecordApplianceRequest(t *testing.T) {
	RecordApplianceRequest("auth", 120*time.Millisecond, nil)
	RecordApplianceRequest("download", 8*time.Second, nil)
	RecordApplianceRequest("version", 50*time.Millisecond, errors.New("tls handshake failure"))
}

// TestRecordApplianceTransfer tests byte counters
func TestRecordApplianceTransfer(t *testing.T) {
	before := testutil.ToFloat64(ApplianceTransferBytes.WithLabelValues("download"))
	RecordApplianceTransfer("download", 4096)
	after := testutil.ToFloat64(ApplianceTransferBytes.WithLabelValues("download"))
	if after != before+4096 {
		t.Errorf("appliance_transfer_bytes_total{download} = %v, want %v", after, before+4096)
	}

	// Zero-byte transfers are ignored
	RecordApplianceTransfer("upload", 0)
}

// TestRecordNotification tests delivery outcome recording
func TestRecordNotification(t *testing.T) {
	RecordNotification("discord", "success")
	RecordNotification("slack", "failure")
	RecordNotification("webhook", "rejected")
}

// TestRecordDBQuery tests store query recording
func TestRecordDBQuery(t *testing.T) {
	RecordDBQuery("select", "targets", 2*time.Millisecond, nil)
	RecordDBQuery("insert", "artifact_records", 5*time.Millisecond, nil)
	RecordDBQuery("delete", "artifact_records", time.Millisecond, errors.New("database is locked"))
}

// TestRecordAPIRequest tests API request recording
func TestRecordAPIRequest(t *testing.T) {
	RecordAPIRequest("GET", "/api/v1/targets", "200", 15*time.Millisecond)
	RecordAPIRequest("POST", "/api/v1/targets/{id}/backups", "502", 30*time.Second)
}

// TestTrackActiveRequest tests the active request gauge pairing
func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	TrackActiveRequest(false)

	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("api_active_requests = %v, want %v after inc/dec pair", got, before)
	}
}

// TestConcurrentRecording verifies recorders are safe under concurrency
func TestConcurrentRecording(t *testing.T) {
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				RecordBackup("scheduled", time.Second, 1024, nil)
				RecordFire("run")
				TrackActiveRequest(true)
				TrackActiveRequest(false)
			}
		}()
	}

	wg.Wait()
}

// TestMetricGathering verifies metrics can be gathered and pass linting
func TestMetricGathering(t *testing.T) {
	RecordDBQuery("select", "targets", time.Millisecond, nil)
	RecordAPIRequest("GET", "/test", "200", time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}

func BenchmarkRecordBackup(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordBackup("scheduled", 30*time.Second, 1<<20, nil)
	}
}

func BenchmarkRecordFire(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordFire("run")
	}
}
