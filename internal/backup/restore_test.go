// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package backup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/tomtom215/checkpoint/internal/appliance"
	"github.com/tomtom215/checkpoint/internal/models"
	"github.com/tomtom215/checkpoint/internal/notify"
)

func TestRestoreRequiresConfirmation(t *testing.T) {
	fake := &fakeAppliance{archive: []byte("payload")}
	eng, st, pub := newTestEngine(t, fake)
	target := seedTarget(t, eng, st, "alpha")
	ctx := context.Background()

	record, err := eng.CreateBackup(ctx, target, models.TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	published := len(pub.kinds())

	if err := eng.RestoreBackup(ctx, record, false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("error = %v, want ErrConfirmationRequired", err)
	}

	if fake.uploadCount() != 0 {
		t.Error("unconfirmed restore reached the appliance")
	}
	if len(pub.kinds()) != published {
		t.Error("unconfirmed restore published an event")
	}
}

func TestRestoreUploadsArchive(t *testing.T) {
	archive := []byte("teleporter-archive-bytes")
	fake := &fakeAppliance{archive: archive}
	eng, st, pub := newTestEngine(t, fake)
	target := seedTarget(t, eng, st, "alpha")
	ctx := context.Background()

	record, err := eng.CreateBackup(ctx, target, models.TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	if err := eng.RestoreBackup(ctx, record, true); err != nil {
		t.Fatalf("RestoreBackup() error = %v", err)
	}

	if fake.uploadCount() != 1 {
		t.Fatalf("uploads = %d, want 1", fake.uploadCount())
	}
	if !bytes.Equal(fake.lastUpload(), archive) {
		t.Error("uploaded bytes differ from the stored artifact")
	}

	kinds := pub.kinds()
	if len(kinds) != 2 || kinds[1] != notify.KindRestoreSuccess {
		t.Errorf("published kinds = %v, want restore_success last", kinds)
	}
}

func TestRestoreMissingFile(t *testing.T) {
	fake := &fakeAppliance{archive: []byte("payload")}
	eng, st, pub := newTestEngine(t, fake)
	target := seedTarget(t, eng, st, "alpha")
	ctx := context.Background()

	record, err := eng.CreateBackup(ctx, target, models.TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if err := os.Remove(record.FilePath); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	err = eng.RestoreBackup(ctx, record, true)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}

	if fake.uploadCount() != 0 {
		t.Error("restore with a missing file reached the appliance")
	}
	kinds := pub.kinds()
	if len(kinds) != 2 || kinds[1] != notify.KindRestoreFailed {
		t.Errorf("published kinds = %v, want restore_failed last", kinds)
	}
}

func TestRestoreChecksumMismatch(t *testing.T) {
	fake := &fakeAppliance{archive: []byte("payload")}
	eng, st, pub := newTestEngine(t, fake)
	target := seedTarget(t, eng, st, "alpha")
	ctx := context.Background()

	record, err := eng.CreateBackup(ctx, target, models.TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if err := os.WriteFile(record.FilePath, []byte("tampered"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	err = eng.RestoreBackup(ctx, record, true)
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("error = %v, want *IntegrityError", err)
	}
	if integrity.Expected != record.Checksum {
		t.Errorf("Expected = %q, want the recorded checksum", integrity.Expected)
	}
	if integrity.Actual == record.Checksum {
		t.Error("Actual matches the recorded checksum for tampered bytes")
	}

	if fake.uploadCount() != 0 {
		t.Error("corrupted artifact reached the appliance")
	}
	if _, err := os.Stat(record.FilePath); err != nil {
		t.Error("corrupted artifact removed; it should stay for inspection")
	}
	kinds := pub.kinds()
	if len(kinds) != 2 || kinds[1] != notify.KindRestoreFailed {
		t.Errorf("published kinds = %v, want restore_failed last", kinds)
	}
}

func TestRestoreOrphanedRecord(t *testing.T) {
	fake := &fakeAppliance{archive: []byte("payload")}
	eng, st, pub := newTestEngine(t, fake)
	target := seedTarget(t, eng, st, "alpha")
	ctx := context.Background()

	record, err := eng.CreateBackup(ctx, target, models.TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if err := st.DeleteTarget(ctx, target.ID); err != nil {
		t.Fatalf("DeleteTarget() error = %v", err)
	}
	published := len(pub.kinds())

	if err := eng.RestoreBackup(ctx, record, true); !errors.Is(err, ErrTargetMissing) {
		t.Fatalf("error = %v, want ErrTargetMissing", err)
	}

	if fake.uploadCount() != 0 {
		t.Error("orphaned restore reached the appliance")
	}
	if len(pub.kinds()) != published {
		t.Error("orphaned restore published an event")
	}
}

func TestRestoreUploadFailure(t *testing.T) {
	cause := &appliance.ConnectionError{URL: "https://pihole.local", Err: errors.New("connection refused")}
	fake := &fakeAppliance{archive: []byte("payload"), uploadErr: cause}
	eng, st, pub := newTestEngine(t, fake)
	target := seedTarget(t, eng, st, "alpha")
	ctx := context.Background()

	record, err := eng.CreateBackup(ctx, target, models.TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	err = eng.RestoreBackup(ctx, record, true)
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want it to wrap the upload failure", err)
	}

	kinds := pub.kinds()
	if len(kinds) != 3 || kinds[1] != notify.KindRestoreFailed || kinds[2] != notify.KindConnectionLost {
		t.Errorf("published kinds = %v, want [... restore_failed connection_lost]", kinds)
	}
}
