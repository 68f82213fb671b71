// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/tomtom215/checkpoint/internal/models"
)

const defaultRecordPageSize = 50

// recordRow maps the artifact_records table for bun queries.
type recordRow struct {
	bun.BaseModel `bun:"table:artifact_records,alias:artifact_records"`

	ID        string    `bun:"id,pk"`
	TargetID  string    `bun:"target_id"`
	Filename  string    `bun:"filename"`
	FilePath  string    `bun:"file_path"`
	FileSize  int64     `bun:"file_size"`
	Checksum  string    `bun:"checksum"`
	Status    string    `bun:"status"`
	Error     string    `bun:"error"`
	Trigger   string    `bun:"trigger_kind"`
	CreatedAt time.Time `bun:"created_at"`
}

func recordToRow(r *models.ArtifactRecord) recordRow {
	return recordRow{
		ID:        r.ID,
		TargetID:  r.TargetID,
		Filename:  r.Filename,
		FilePath:  r.FilePath,
		FileSize:  r.FileSize,
		Checksum:  r.Checksum,
		Status:    string(r.Status),
		Error:     r.Error,
		Trigger:   string(r.Trigger),
		CreatedAt: r.CreatedAt,
	}
}

func recordFromRow(row recordRow) models.ArtifactRecord {
	return models.ArtifactRecord{
		ID:        row.ID,
		TargetID:  row.TargetID,
		Filename:  row.Filename,
		FilePath:  row.FilePath,
		FileSize:  row.FileSize,
		Checksum:  row.Checksum,
		Status:    models.RecordStatus(row.Status),
		Error:     row.Error,
		Trigger:   models.RecordTrigger(row.Trigger),
		CreatedAt: row.CreatedAt,
	}
}

// InsertRecord stores a terminal backup outcome. Records are only written at
// the end of an operation, so there is no update path.
func (s *Store) InsertRecord(ctx context.Context, record *models.ArtifactRecord) (err error) {
	defer observe("insert", "artifact_records", time.Now(), &err)

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	row := recordToRow(record)
	if _, err = s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// GetRecord retrieves an artifact record by id.
func (s *Store) GetRecord(ctx context.Context, id string) (_ *models.ArtifactRecord, err error) {
	defer observe("select", "artifact_records", time.Now(), &err)

	var row recordRow
	err = s.db.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	r := recordFromRow(row)
	return &r, nil
}

// DeleteRecord removes an artifact record. Callers are responsible for the
// file-first deletion ordering; the store only touches the row.
func (s *Store) DeleteRecord(ctx context.Context, id string) (err error) {
	defer observe("delete", "artifact_records", time.Now(), &err)

	res, err := s.db.NewDelete().Model((*recordRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListRecordsByTarget returns a target's records newest first.
func (s *Store) ListRecordsByTarget(ctx context.Context, targetID string, limit, offset int) (_ []models.ArtifactRecord, err error) {
	defer observe("select", "artifact_records", time.Now(), &err)

	if limit <= 0 {
		limit = defaultRecordPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var rows []recordRow
	err = s.db.NewSelect().Model(&rows).
		Where("target_id = ?", targetID).
		OrderExpr("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return recordsFromRows(rows), nil
}

// ListAllRecords returns records across every target, newest first.
func (s *Store) ListAllRecords(ctx context.Context, limit, offset int) (_ []models.ArtifactRecord, err error) {
	defer observe("select", "artifact_records", time.Now(), &err)

	if limit <= 0 {
		limit = defaultRecordPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var rows []recordRow
	err = s.db.NewSelect().Model(&rows).
		OrderExpr("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return recordsFromRows(rows), nil
}

// CountRecordsByTarget returns the number of records held for a target.
func (s *Store) CountRecordsByTarget(ctx context.Context, targetID string) (_ int, err error) {
	defer observe("select", "artifact_records", time.Now(), &err)

	count, err := s.db.NewSelect().Model((*recordRow)(nil)).
		Where("target_id = ?", targetID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// CountRecords returns the number of records across every target.
func (s *Store) CountRecords(ctx context.Context) (_ int, err error) {
	defer observe("select", "artifact_records", time.Now(), &err)

	count, err := s.db.NewSelect().Model((*recordRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// ListSuccessRecordsByTarget returns a target's successful records newest
// first, the ordering the count retention policy walks.
func (s *Store) ListSuccessRecordsByTarget(ctx context.Context, targetID string) (_ []models.ArtifactRecord, err error) {
	defer observe("select", "artifact_records", time.Now(), &err)

	var rows []recordRow
	err = s.db.NewSelect().Model(&rows).
		Where("target_id = ?", targetID).
		Where("status = ?", string(models.StatusSuccess)).
		OrderExpr("created_at DESC, id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list success records: %w", err)
	}
	return recordsFromRows(rows), nil
}

// ListRecordsOlderThan returns records of the given status created before
// cutoff, oldest first. An empty targetID spans all targets.
func (s *Store) ListRecordsOlderThan(ctx context.Context, status models.RecordStatus, targetID string, cutoff time.Time) (_ []models.ArtifactRecord, err error) {
	defer observe("select", "artifact_records", time.Now(), &err)

	var rows []recordRow
	q := s.db.NewSelect().Model(&rows).
		Where("status = ?", string(status)).
		Where("created_at < ?", cutoff.UTC()).
		OrderExpr("created_at ASC, id ASC")
	if targetID != "" {
		q = q.Where("target_id = ?", targetID)
	}
	if err = q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list records older than cutoff: %w", err)
	}
	return recordsFromRows(rows), nil
}

// ListOrphanedRecords returns records whose owning target no longer exists.
func (s *Store) ListOrphanedRecords(ctx context.Context) (_ []models.ArtifactRecord, err error) {
	defer observe("select", "artifact_records", time.Now(), &err)

	var rows []recordRow
	err = s.db.NewSelect().Model(&rows).
		Where("target_id NOT IN (SELECT id FROM targets)").
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphaned records: %w", err)
	}
	return recordsFromRows(rows), nil
}

// ListRecordFilenames returns every filename referenced by any record. The
// orphan file sweep diffs the artifact directory against this set.
func (s *Store) ListRecordFilenames(ctx context.Context) (_ []string, err error) {
	defer observe("select", "artifact_records", time.Now(), &err)

	var filenames []string
	if err = s.db.NewRaw("SELECT filename FROM artifact_records").Scan(ctx, &filenames); err != nil {
		return nil, fmt.Errorf("failed to list record filenames: %w", err)
	}
	return filenames, nil
}

func recordsFromRows(rows []recordRow) []models.ArtifactRecord {
	records := make([]models.ArtifactRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFromRow(row))
	}
	return records
}
