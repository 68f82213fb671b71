// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/checkpoint/internal/models"
)

func TestEnforceMaxCount(t *testing.T) {
	eng, st, _ := newTestEngine(t, &fakeAppliance{})
	target := seedTarget(t, eng, st, "alpha")
	ctx := context.Background()

	var records []*models.ArtifactRecord
	for age := 1; age <= 8; age++ {
		records = append(records, seedRecord(t, eng, target, models.StatusSuccess, time.Duration(age)*time.Hour))
	}

	target.MaxCount = 5
	res, err := eng.Enforce(ctx, target)
	if err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}
	if res.CountDeleted != 3 {
		t.Errorf("CountDeleted = %d, want 3", res.CountDeleted)
	}

	remaining, err := st.ListSuccessRecordsByTarget(ctx, target.ID)
	if err != nil {
		t.Fatalf("ListSuccessRecordsByTarget() error = %v", err)
	}
	if len(remaining) != 5 {
		t.Fatalf("remaining records = %d, want 5", len(remaining))
	}

	// Newest five survive, oldest three are gone along with their files.
	for _, record := range records[:5] {
		if _, err := os.Stat(record.FilePath); err != nil {
			t.Errorf("kept artifact %s missing: %v", record.Filename, err)
		}
	}
	for _, record := range records[5:] {
		if _, err := os.Stat(record.FilePath); !os.IsNotExist(err) {
			t.Errorf("pruned artifact %s still on disk", record.Filename)
		}
		if _, err := st.GetRecord(ctx, record.ID); err == nil {
			t.Errorf("pruned record %s still stored", record.ID)
		}
	}
}

func TestEnforceMaxAge(t *testing.T) {
	eng, st, _ := newTestEngine(t, &fakeAppliance{})
	target := seedTarget(t, eng, st, "alpha")
	ctx := context.Background()

	young := seedRecord(t, eng, target, models.StatusSuccess, 10*24*time.Hour)
	old1 := seedRecord(t, eng, target, models.StatusSuccess, 40*24*time.Hour)
	old2 := seedRecord(t, eng, target, models.StatusSuccess, 50*24*time.Hour)

	target.MaxAgeDays = 30
	res, err := eng.Enforce(ctx, target)
	if err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}
	if res.AgeDeleted != 2 {
		t.Errorf("AgeDeleted = %d, want 2", res.AgeDeleted)
	}

	if _, err := st.GetRecord(ctx, young.ID); err != nil {
		t.Errorf("young record pruned: %v", err)
	}
	for _, record := range []*models.ArtifactRecord{old1, old2} {
		if _, err := st.GetRecord(ctx, record.ID); err == nil {
			t.Errorf("old record %s still stored", record.ID)
		}
		if _, err := os.Stat(record.FilePath); !os.IsNotExist(err) {
			t.Errorf("old artifact %s still on disk", record.Filename)
		}
	}
}

func TestEnforceZeroPoliciesKeepEverything(t *testing.T) {
	eng, st, _ := newTestEngine(t, &fakeAppliance{})
	target := seedTarget(t, eng, st, "alpha")
	ctx := context.Background()

	seedRecord(t, eng, target, models.StatusSuccess, time.Hour)
	seedRecord(t, eng, target, models.StatusSuccess, 100*24*time.Hour)

	res, err := eng.Enforce(ctx, target)
	if err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}
	if res.Total() != 0 {
		t.Errorf("Total() = %d, want 0 with both policies disabled", res.Total())
	}

	count, err := st.CountRecordsByTarget(ctx, target.ID)
	if err != nil {
		t.Fatalf("CountRecordsByTarget() error = %v", err)
	}
	if count != 2 {
		t.Errorf("records = %d, want 2", count)
	}
}

func TestEnforceCleansOldFailedRecords(t *testing.T) {
	eng, st, _ := newTestEngine(t, &fakeAppliance{})
	target := seedTarget(t, eng, st, "alpha")
	ctx := context.Background()

	stale := seedRecord(t, eng, target, models.StatusFailed, 8*24*time.Hour)
	fresh := seedRecord(t, eng, target, models.StatusFailed, 24*time.Hour)

	res, err := eng.Enforce(ctx, target)
	if err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}
	if res.FailedDeleted != 1 {
		t.Errorf("FailedDeleted = %d, want 1", res.FailedDeleted)
	}

	if _, err := st.GetRecord(ctx, stale.ID); err == nil {
		t.Error("stale failed record still stored")
	}
	if _, err := st.GetRecord(ctx, fresh.ID); err != nil {
		t.Errorf("fresh failed record pruned: %v", err)
	}
}

func TestEnforceKeepsRecordWhenFileRemovalFails(t *testing.T) {
	eng, st, _ := newTestEngine(t, &fakeAppliance{})
	target := seedTarget(t, eng, st, "alpha")
	ctx := context.Background()

	// A non-empty directory at the artifact path makes os.Remove fail.
	stuck := filepath.Join(eng.backupDir, "checkpoint-stuck.zip")
	if err := os.MkdirAll(filepath.Join(stuck, "child"), 0o750); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	record := &models.ArtifactRecord{
		TargetID:  target.ID,
		Filename:  "checkpoint-stuck.zip",
		FilePath:  stuck,
		Status:    models.StatusSuccess,
		Trigger:   models.TriggerScheduled,
		CreatedAt: time.Now().UTC().Add(-40 * 24 * time.Hour),
	}
	if err := st.InsertRecord(ctx, record); err != nil {
		t.Fatalf("InsertRecord() error = %v", err)
	}

	target.MaxAgeDays = 30
	res, err := eng.Enforce(ctx, target)
	if err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}
	if res.AgeDeleted != 0 {
		t.Errorf("AgeDeleted = %d, want 0", res.AgeDeleted)
	}
	if _, err := st.GetRecord(ctx, record.ID); err != nil {
		t.Errorf("record removed despite file removal failure: %v", err)
	}
}

func TestEnforceAllSweepsEnabledTargetsOnly(t *testing.T) {
	eng, st, _ := newTestEngine(t, &fakeAppliance{})
	ctx := context.Background()

	first := seedTarget(t, eng, st, "first")
	second := seedTarget(t, eng, st, "second")
	disabled := seedTarget(t, eng, st, "disabled")

	for _, target := range []*models.Target{first, second, disabled} {
		target.MaxCount = 1
		if err := st.UpdateTarget(ctx, target); err != nil {
			t.Fatalf("UpdateTarget() error = %v", err)
		}
		seedRecord(t, eng, target, models.StatusSuccess, time.Hour)
		seedRecord(t, eng, target, models.StatusSuccess, 2*time.Hour)
	}
	disabled.Enabled = false
	if err := st.UpdateTarget(ctx, disabled); err != nil {
		t.Fatalf("UpdateTarget() error = %v", err)
	}

	total, err := eng.EnforceAll(ctx)
	if err != nil {
		t.Fatalf("EnforceAll() error = %v", err)
	}
	if total.CountDeleted != 2 {
		t.Errorf("CountDeleted = %d, want 2 (one per enabled target)", total.CountDeleted)
	}

	count, err := st.CountRecordsByTarget(ctx, disabled.ID)
	if err != nil {
		t.Fatalf("CountRecordsByTarget() error = %v", err)
	}
	if count != 2 {
		t.Errorf("disabled target records = %d, want 2 untouched", count)
	}
}

func TestCleanupOrphans(t *testing.T) {
	eng, st, _ := newTestEngine(t, &fakeAppliance{})
	target := seedTarget(t, eng, st, "alpha")
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)

	// Aged artifact file with no record: reclaimed.
	ghost := filepath.Join(eng.backupDir, "checkpoint-ghost-20260101-000000-deadbeef.zip")
	if err := os.WriteFile(ghost, []byte("ghost"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.Chtimes(ghost, old, old); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	// Fresh unrecorded file: could be a backup in flight, left alone.
	inflight := filepath.Join(eng.backupDir, "checkpoint-fresh-20260101-000000-cafebabe.zip")
	if err := os.WriteFile(inflight, []byte("fresh"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	// Not an artifact name: never touched, however old.
	stray := filepath.Join(eng.backupDir, "notes.txt")
	if err := os.WriteFile(stray, []byte("keep"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.Chtimes(stray, old, old); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	// Record whose owning target is gone: record and file reclaimed.
	doomed := seedTarget(t, eng, st, "doomed")
	orphanRecord := seedRecord(t, eng, doomed, models.StatusSuccess, 3*time.Hour)
	if err := st.DeleteTarget(ctx, doomed.ID); err != nil {
		t.Fatalf("DeleteTarget() error = %v", err)
	}

	// Covered record: survives.
	kept := seedRecord(t, eng, target, models.StatusSuccess, 3*time.Hour)

	files, records, err := eng.CleanupOrphans(ctx)
	if err != nil {
		t.Fatalf("CleanupOrphans() error = %v", err)
	}
	if files != 1 {
		t.Errorf("files = %d, want 1", files)
	}
	if records != 1 {
		t.Errorf("records = %d, want 1", records)
	}

	if _, err := os.Stat(ghost); !os.IsNotExist(err) {
		t.Error("aged orphan file still on disk")
	}
	if _, err := os.Stat(inflight); err != nil {
		t.Error("fresh file reclaimed inside the grace window")
	}
	if _, err := os.Stat(stray); err != nil {
		t.Error("non-artifact file reclaimed")
	}

	if _, err := st.GetRecord(ctx, orphanRecord.ID); err == nil {
		t.Error("orphaned record still stored")
	}
	if _, err := os.Stat(orphanRecord.FilePath); !os.IsNotExist(err) {
		t.Error("orphaned record's file still on disk")
	}

	if _, err := st.GetRecord(ctx, kept.ID); err != nil {
		t.Errorf("covered record reclaimed: %v", err)
	}
	if _, err := os.Stat(kept.FilePath); err != nil {
		t.Errorf("covered artifact reclaimed: %v", err)
	}
}
