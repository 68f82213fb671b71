// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package backup

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tomtom215/checkpoint/internal/metrics"
	"github.com/tomtom215/checkpoint/internal/models"
	"github.com/tomtom215/checkpoint/internal/notify"
	"github.com/tomtom215/checkpoint/internal/store"
)

// RestoreBackup uploads a stored artifact back to its owning appliance,
// replacing the appliance's current configuration.
//
// confirm must be true; an unconfirmed restore is rejected before anything
// is read or sent. A record whose target has been deleted cannot be
// restored and returns ErrTargetMissing. The artifact's checksum is
// re-verified against the bytes on disk before any upload happens.
func (e *Engine) RestoreBackup(ctx context.Context, record *models.ArtifactRecord, confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}

	target, err := e.store.GetTarget(ctx, record.TargetID)
	if err != nil {
		if errors.Is(err, store.ErrTargetNotFound) {
			return ErrTargetMissing
		}
		return fmt.Errorf("failed to load target: %w", err)
	}

	logger := e.logger.With().
		Str("target", target.Name).
		Str("filename", record.Filename).
		Logger()
	logger.Info().Msg("Restoring backup")

	if err := e.restore(ctx, target, record); err != nil {
		logger.Error().Err(err).Msg("Restore failed")
		metrics.RecordRestore(err)
		e.events.Publish(notify.RestoreFailed(target.Name, record.Filename, err))
		e.publishConnectionLost(target.Name, err)
		return err
	}

	logger.Info().Msg("Backup restored")
	metrics.RecordRestore(nil)
	e.events.Publish(notify.RestoreSucceeded(target.Name, record.Filename))
	return nil
}

func (e *Engine) restore(ctx context.Context, target *models.Target, record *models.ArtifactRecord) error {
	path, err := e.ArtifactFile(record)
	if err != nil {
		return err
	}

	if record.Checksum != "" {
		actual, err := fileChecksum(path)
		if err != nil {
			return err
		}
		if actual != record.Checksum {
			return &IntegrityError{
				Filename: record.Filename,
				Expected: record.Checksum,
				Actual:   actual,
			}
		}
	}

	password, err := e.secrets.Open(target.Credential)
	if err != nil {
		return fmt.Errorf("failed to unseal credential: %w", err)
	}

	archive, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	client := e.clients(target.BaseURL, password, target.VerifyTLS)
	defer e.closeSession(client)

	if err := client.UploadBackup(ctx, archive); err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}
	return nil
}
