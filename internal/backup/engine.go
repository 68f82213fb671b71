// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/checkpoint/internal/appliance"
	"github.com/tomtom215/checkpoint/internal/logging"
	"github.com/tomtom215/checkpoint/internal/metrics"
	"github.com/tomtom215/checkpoint/internal/models"
	"github.com/tomtom215/checkpoint/internal/notify"
	"github.com/tomtom215/checkpoint/internal/secrets"
	"github.com/tomtom215/checkpoint/internal/store"
)

const (
	// artifactMode keeps archives private to the service user; they contain
	// the appliance's full configuration.
	artifactMode = 0o600

	// checksumChunkSize bounds memory while hashing large archives.
	checksumChunkSize = 8 * 1024

	// logoutTimeout caps the best-effort session close after an operation.
	logoutTimeout = 5 * time.Second
)

// Engine runs backup, restore, and retention operations against the
// metadata store and the artifact directory. Safe for concurrent use; the
// scheduler's per-target locks prevent overlapping runs on one target, and
// operations on distinct targets are independent.
type Engine struct {
	store     *store.Store
	clients   appliance.Factory
	secrets   *secrets.Keeper
	events    notify.Publisher
	backupDir string
	logger    zerolog.Logger
}

// NewEngine builds an engine writing artifacts under backupDir, creating
// the directory if needed. A nil events publisher disables notifications.
func NewEngine(st *store.Store, clients appliance.Factory, keeper *secrets.Keeper, events notify.Publisher, backupDir string) (*Engine, error) {
	if events == nil {
		events = notify.Discard
	}
	if err := os.MkdirAll(backupDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	return &Engine{
		store:     st,
		clients:   clients,
		secrets:   keeper,
		events:    events,
		backupDir: backupDir,
		logger:    logging.WithComponent("backup"),
	}, nil
}

// CreateBackup downloads an archive from the target's appliance and lands
// it as a verified artifact. On success the returned record is persisted,
// the target's last-success marker is advanced, and a success event is
// published. On failure the partial file is removed, a failed record is
// persisted, the target's last-error is set, failure events are published,
// and the causing error is returned alongside the failed record.
func (e *Engine) CreateBackup(ctx context.Context, target *models.Target, trigger models.RecordTrigger) (*models.ArtifactRecord, error) {
	start := time.Now()
	metrics.TrackBackupInFlight(true)
	defer metrics.TrackBackupInFlight(false)

	id := uuid.New().String()
	filename := artifactFilename(target.Name, start, id)
	path := filepath.Join(e.backupDir, filename)

	logger := e.logger.With().
		Str("target", target.Name).
		Str("trigger", string(trigger)).
		Logger()
	logger.Info().Str("filename", filename).Msg("Creating backup")

	password, err := e.secrets.Open(target.Credential)
	if err != nil {
		return e.failBackup(ctx, target, id, filename, path, trigger, start,
			fmt.Errorf("failed to unseal credential: %w", err))
	}

	client := e.clients(target.BaseURL, password, target.VerifyTLS)
	defer e.closeSession(client)

	archive, err := client.DownloadBackup(ctx)
	if err != nil {
		return e.failBackup(ctx, target, id, filename, path, trigger, start,
			fmt.Errorf("failed to download backup: %w", err))
	}

	if err := writeArtifact(path, archive); err != nil {
		return e.failBackup(ctx, target, id, filename, path, trigger, start, err)
	}

	// Checksum what actually landed on disk, not the bytes in memory.
	checksum, err := fileChecksum(path)
	if err != nil {
		return e.failBackup(ctx, target, id, filename, path, trigger, start, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return e.failBackup(ctx, target, id, filename, path, trigger, start,
			fmt.Errorf("failed to stat artifact: %w", err))
	}

	record := &models.ArtifactRecord{
		ID:        id,
		TargetID:  target.ID,
		Filename:  filename,
		FilePath:  path,
		FileSize:  info.Size(),
		Checksum:  checksum,
		Status:    models.StatusSuccess,
		Trigger:   trigger,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.InsertRecord(ctx, record); err != nil {
		return e.failBackup(ctx, target, id, filename, path, trigger, start,
			fmt.Errorf("failed to record backup: %w", err))
	}

	if err := e.store.SetTargetLastSuccess(ctx, target.ID, record.CreatedAt); err != nil {
		logger.Warn().Err(err).Msg("Failed to update target status")
	}

	metrics.RecordBackup(string(trigger), time.Since(start), record.FileSize, nil)
	logger.Info().
		Int64("size_bytes", record.FileSize).
		Dur("duration", time.Since(start)).
		Msg("Backup created")

	e.events.Publish(notify.BackupSucceeded(target.Name, record))
	return record, nil
}

// failBackup settles a failed backup: partial file removed, failed record
// persisted, target marked, metrics and events emitted. Cleanup problems
// are logged and never mask the causing error, which is always returned.
func (e *Engine) failBackup(ctx context.Context, target *models.Target, id, filename, path string, trigger models.RecordTrigger, start time.Time, cause error) (*models.ArtifactRecord, error) {
	logger := e.logger.With().Str("target", target.Name).Logger()
	logger.Error().Err(cause).Msg("Backup failed")

	// Bookkeeping must survive a canceled or timed-out execution context.
	ctx = context.WithoutCancel(ctx)

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to remove partial artifact")
	}

	record := &models.ArtifactRecord{
		ID:        id,
		TargetID:  target.ID,
		Filename:  filename,
		Status:    models.StatusFailed,
		Error:     cause.Error(),
		Trigger:   trigger,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.InsertRecord(ctx, record); err != nil {
		logger.Warn().Err(err).Msg("Failed to record backup failure")
	}
	if err := e.store.SetTargetLastError(ctx, target.ID, cause.Error()); err != nil {
		logger.Warn().Err(err).Msg("Failed to update target status")
	}

	metrics.RecordBackup(string(trigger), time.Since(start), 0, cause)

	e.events.Publish(notify.BackupFailed(target.Name, cause))
	e.publishConnectionLost(target.Name, cause)

	return record, cause
}

// DeleteBackup removes an artifact and its record, file first. A file that
// cannot be removed keeps its record, so the artifact stays visible and a
// later attempt can finish the job.
func (e *Engine) DeleteBackup(ctx context.Context, record *models.ArtifactRecord) error {
	if err := e.removeArtifact(ctx, record); err != nil {
		return err
	}
	e.logger.Info().Str("filename", record.Filename).Msg("Backup deleted")
	return nil
}

// ArtifactFile returns the on-disk path behind a record, verifying the
// file is still present.
func (e *Engine) ArtifactFile(record *models.ArtifactRecord) (string, error) {
	if record.FilePath == "" {
		return "", &NotFoundError{Filename: record.Filename}
	}
	if _, err := os.Stat(record.FilePath); err != nil {
		return "", &NotFoundError{Filename: record.Filename}
	}
	return record.FilePath, nil
}

// removeArtifact deletes the file, then the record. A missing file counts
// as already deleted; a file removal error leaves the record in place.
func (e *Engine) removeArtifact(ctx context.Context, record *models.ArtifactRecord) error {
	if record.FilePath != "" {
		if err := os.Remove(record.FilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove artifact file %s: %w", record.Filename, err)
		}
	}
	if err := e.store.DeleteRecord(ctx, record.ID); err != nil {
		return fmt.Errorf("failed to delete record for %s: %w", record.Filename, err)
	}
	return nil
}

// publishConnectionLost raises the connectivity alert when a failure was a
// transport-level connection error rather than an appliance-side one.
func (e *Engine) publishConnectionLost(targetName string, cause error) {
	var connErr *appliance.ConnectionError
	if errors.As(cause, &connErr) {
		e.events.Publish(notify.ConnectionLost(targetName, cause))
	}
}

// closeSession ends the appliance session. Sessions are a limited resource
// on the appliance, so every operation closes its own.
func (e *Engine) closeSession(client appliance.Interface) {
	ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
	defer cancel()
	if err := client.Logout(ctx); err != nil {
		e.logger.Debug().Err(err).Msg("Session logout failed")
	}
}

// artifactFilename builds checkpoint-<name>-<timestamp>-<id>.zip. The id
// fragment keeps two backups created within the same second distinct.
func artifactFilename(targetName string, at time.Time, id string) string {
	fragment := id
	if len(fragment) > 8 {
		fragment = fragment[:8]
	}
	return fmt.Sprintf("checkpoint-%s-%s-%s.zip",
		sanitizeName(targetName), at.UTC().Format("20060102-150405"), fragment)
}

// sanitizeName reduces a display name to [a-z0-9_-] for use in filenames.
// Each run of other characters collapses to a single underscore.
func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	gap := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			if gap && b.Len() > 0 {
				b.WriteByte('_')
			}
			gap = false
			b.WriteRune(r)
		default:
			gap = true
		}
	}

	if b.Len() == 0 {
		return "target"
	}
	return b.String()
}

// writeArtifact lands archive bytes in a fresh private file. O_EXCL guards
// against silently reusing a path from another run.
func writeArtifact(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, artifactMode)
	if err != nil {
		return fmt.Errorf("failed to create artifact file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// fileChecksum computes the hex SHA-256 of a file in fixed-size chunks.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact for checksum: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, checksumChunkSize)); err != nil {
		return "", fmt.Errorf("failed to checksum artifact: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
