// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/checkpoint/internal/metrics"
	"github.com/tomtom215/checkpoint/internal/models"
)

const (
	// failedRecordMaxAge bounds how long failure records are kept. They
	// carry no file, only the error message for diagnosis.
	failedRecordMaxAge = 7 * 24 * time.Hour

	// orphanFileGrace protects files from a backup still in flight: the
	// file lands on disk before its record does.
	orphanFileGrace = time.Hour
)

// Result counts the records removed by each retention policy.
type Result struct {
	CountDeleted  int
	AgeDeleted    int
	FailedDeleted int
}

// Total returns all removals in the result.
func (r Result) Total() int {
	return r.CountDeleted + r.AgeDeleted + r.FailedDeleted
}

// Enforce applies the target's retention policies: keep the newest
// MaxCount successful artifacts, drop successes older than MaxAgeDays, and
// clean up failed records older than a week. The two success policies are
// independent and a zero bound disables each. Files are removed before
// records; a file that cannot be removed keeps its record for a later
// pass.
func (e *Engine) Enforce(ctx context.Context, target *models.Target) (Result, error) {
	var res Result
	logger := e.logger.With().Str("target", target.Name).Logger()

	deleted, err := e.enforceCount(ctx, target, logger)
	res.CountDeleted = deleted
	if err != nil {
		return res, err
	}

	deleted, err = e.enforceAge(ctx, target, logger)
	res.AgeDeleted = deleted
	if err != nil {
		return res, err
	}

	deleted, err = e.cleanupFailed(ctx, target, logger)
	res.FailedDeleted = deleted
	if err != nil {
		return res, err
	}

	if res.Total() > 0 {
		logger.Info().
			Int("count_deleted", res.CountDeleted).
			Int("age_deleted", res.AgeDeleted).
			Int("failed_deleted", res.FailedDeleted).
			Msg("Retention enforced")
	}
	return res, nil
}

// enforceCount removes the oldest successes beyond the newest MaxCount.
func (e *Engine) enforceCount(ctx context.Context, target *models.Target, logger zerolog.Logger) (int, error) {
	if target.MaxCount <= 0 {
		return 0, nil
	}

	records, err := e.store.ListSuccessRecordsByTarget(ctx, target.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list records: %w", err)
	}

	deleted := 0
	for i := target.MaxCount; i < len(records); i++ {
		if err := e.removeArtifact(ctx, &records[i]); err != nil {
			logger.Warn().Err(err).Msg("Retention removal failed")
			continue
		}
		logger.Info().Str("filename", records[i].Filename).Msg("Backup removed (exceeds max count)")
		deleted++
	}

	metrics.RecordRetentionDeletions("count", deleted)
	return deleted, nil
}

// enforceAge removes successes older than MaxAgeDays.
func (e *Engine) enforceAge(ctx context.Context, target *models.Target, logger zerolog.Logger) (int, error) {
	if target.MaxAgeDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -target.MaxAgeDays)
	records, err := e.store.ListRecordsOlderThan(ctx, models.StatusSuccess, target.ID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list records: %w", err)
	}

	deleted := 0
	for i := range records {
		if err := e.removeArtifact(ctx, &records[i]); err != nil {
			logger.Warn().Err(err).Msg("Retention removal failed")
			continue
		}
		logger.Info().Str("filename", records[i].Filename).Msg("Backup removed (exceeds max age)")
		deleted++
	}

	metrics.RecordRetentionDeletions("age", deleted)
	return deleted, nil
}

// cleanupFailed drops failure records past their diagnostic shelf life.
func (e *Engine) cleanupFailed(ctx context.Context, target *models.Target, logger zerolog.Logger) (int, error) {
	cutoff := time.Now().UTC().Add(-failedRecordMaxAge)
	records, err := e.store.ListRecordsOlderThan(ctx, models.StatusFailed, target.ID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list records: %w", err)
	}

	deleted := 0
	for i := range records {
		if err := e.removeArtifact(ctx, &records[i]); err != nil {
			logger.Warn().Err(err).Msg("Retention removal failed")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		logger.Info().Int("count", deleted).Msg("Cleaned up old failed records")
	}
	metrics.RecordRetentionDeletions("failed", deleted)
	return deleted, nil
}

// EnforceAll sweeps retention across all enabled targets. Per-target
// failures are logged and counted, never aborting the sweep.
func (e *Engine) EnforceAll(ctx context.Context) (Result, error) {
	start := time.Now()

	targets, err := e.store.ListEnabledTargets(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list targets: %w", err)
	}

	var total Result
	failures := 0
	for i := range targets {
		res, err := e.Enforce(ctx, &targets[i])
		total.CountDeleted += res.CountDeleted
		total.AgeDeleted += res.AgeDeleted
		total.FailedDeleted += res.FailedDeleted
		if err != nil {
			failures++
			e.logger.Error().Err(err).Str("target", targets[i].Name).Msg("Retention enforcement failed")
		}
	}

	metrics.RecordRetentionSweep(time.Since(start), failures)
	e.logger.Info().
		Int("targets", len(targets)).
		Int("deleted", total.Total()).
		Int("failures", failures).
		Msg("Retention sweep complete")
	return total, nil
}

// CleanupOrphans reclaims artifacts stranded by crashes or target
// deletion: records whose owning target is gone, and artifact-directory
// files no record points at. Files younger than the grace window are left
// alone because a running backup writes its file before its record.
func (e *Engine) CleanupOrphans(ctx context.Context) (files, records int, err error) {
	orphaned, err := e.store.ListOrphanedRecords(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list orphaned records: %w", err)
	}
	for i := range orphaned {
		if err := e.removeArtifact(ctx, &orphaned[i]); err != nil {
			e.logger.Warn().Err(err).Msg("Orphaned record removal failed")
			continue
		}
		e.logger.Info().Str("filename", orphaned[i].Filename).Msg("Orphaned record removed")
		records++
	}

	known, err := e.store.ListRecordFilenames(ctx)
	if err != nil {
		return files, records, fmt.Errorf("failed to list record filenames: %w", err)
	}
	recorded := make(map[string]struct{}, len(known))
	for _, name := range known {
		recorded[name] = struct{}{}
	}

	entries, err := os.ReadDir(e.backupDir)
	if err != nil {
		return files, records, fmt.Errorf("failed to read artifact directory: %w", err)
	}

	cutoff := time.Now().Add(-orphanFileGrace)
	for _, entry := range entries {
		if entry.IsDir() || !isArtifactName(entry.Name()) {
			continue
		}
		if _, ok := recorded[entry.Name()]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(e.backupDir, entry.Name())); err != nil {
			e.logger.Warn().Err(err).Str("filename", entry.Name()).Msg("Orphaned file removal failed")
			continue
		}
		e.logger.Info().Str("filename", entry.Name()).Msg("Orphaned file removed")
		files++
	}

	metrics.RecordRetentionDeletions("orphan_record", records)
	metrics.RecordRetentionDeletions("orphan_file", files)

	if files > 0 || records > 0 {
		e.logger.Info().Int("files", files).Int("records", records).Msg("Orphan cleanup complete")
	}
	return files, records, nil
}

// isArtifactName restricts the orphan sweep to files this engine created.
func isArtifactName(name string) bool {
	return strings.HasPrefix(name, "checkpoint-") && strings.HasSuffix(name, ".zip")
}
