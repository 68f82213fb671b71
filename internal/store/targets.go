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

// targetRow maps the targets table for bun queries. The clean model lives in
// internal/models; conversions are centralized below.
type targetRow struct {
	bun.BaseModel `bun:"table:targets,alias:targets"`

	ID            string       `bun:"id,pk"`
	Name          string       `bun:"name"`
	BaseURL       string       `bun:"base_url"`
	Credential    string       `bun:"credential"`
	VerifyTLS     bool         `bun:"verify_tls"`
	Frequency     string       `bun:"frequency"`
	AtTime        string       `bun:"at_time"`
	Weekday       int          `bun:"weekday"`
	MaxCount      int          `bun:"max_count"`
	MaxAgeDays    int          `bun:"max_age_days"`
	Enabled       bool         `bun:"enabled"`
	LastSuccessAt sql.NullTime `bun:"last_success_at"`
	LastError     string       `bun:"last_error"`
	CreatedAt     time.Time    `bun:"created_at"`
	UpdatedAt     time.Time    `bun:"updated_at"`
}

func targetToRow(t *models.Target) targetRow {
	row := targetRow{
		ID:         t.ID,
		Name:       t.Name,
		BaseURL:    t.BaseURL,
		Credential: t.Credential,
		VerifyTLS:  t.VerifyTLS,
		Frequency:  string(t.Frequency),
		AtTime:     t.AtTime,
		Weekday:    t.Weekday,
		MaxCount:   t.MaxCount,
		MaxAgeDays: t.MaxAgeDays,
		Enabled:    t.Enabled,
		LastError:  t.LastError,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	if t.LastSuccessAt != nil {
		row.LastSuccessAt = sql.NullTime{Time: *t.LastSuccessAt, Valid: true}
	}
	return row
}

func targetFromRow(row targetRow) models.Target {
	t := models.Target{
		ID:         row.ID,
		Name:       row.Name,
		BaseURL:    row.BaseURL,
		Credential: row.Credential,
		VerifyTLS:  row.VerifyTLS,
		Frequency:  models.Frequency(row.Frequency),
		AtTime:     row.AtTime,
		Weekday:    row.Weekday,
		MaxCount:   row.MaxCount,
		MaxAgeDays: row.MaxAgeDays,
		Enabled:    row.Enabled,
		LastError:  row.LastError,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if row.LastSuccessAt.Valid {
		at := row.LastSuccessAt.Time
		t.LastSuccessAt = &at
	}
	return t
}

// CreateTarget inserts a new target, assigning an id and timestamps when the
// caller left them zero. The credential must already be sealed.
func (s *Store) CreateTarget(ctx context.Context, target *models.Target) (err error) {
	defer observe("insert", "targets", time.Now(), &err)

	if target.ID == "" {
		target.ID = uuid.New().String()
	}
	if target.CreatedAt.IsZero() {
		target.CreatedAt = time.Now().UTC()
	}
	target.UpdatedAt = target.CreatedAt

	row := targetToRow(target)
	if _, err = s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}
	return nil
}

// GetTarget retrieves a target by id.
func (s *Store) GetTarget(ctx context.Context, id string) (_ *models.Target, err error) {
	defer observe("select", "targets", time.Now(), &err)

	var row targetRow
	err = s.db.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTargetNotFound
		}
		return nil, fmt.Errorf("failed to get target: %w", err)
	}

	t := targetFromRow(row)
	return &t, nil
}

// UpdateTarget persists the mutable configuration of an existing target.
// Operational state (last_success_at, last_error) has dedicated setters and
// is not touched here.
func (s *Store) UpdateTarget(ctx context.Context, target *models.Target) (err error) {
	defer observe("update", "targets", time.Now(), &err)

	target.UpdatedAt = time.Now().UTC()
	row := targetToRow(target)

	res, err := s.db.NewUpdate().Model(&row).
		Column("name", "base_url", "credential", "verify_tls", "frequency",
			"at_time", "weekday", "max_count", "max_age_days", "enabled", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update target: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTargetNotFound
	}
	return nil
}

// DeleteTarget removes a target. Its artifact records are left in place and
// become orphans; the retention orphan sweep reclaims them together with
// their files.
func (s *Store) DeleteTarget(ctx context.Context, id string) (err error) {
	defer observe("delete", "targets", time.Now(), &err)

	res, err := s.db.NewDelete().Model((*targetRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete target: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTargetNotFound
	}
	return nil
}

// ListTargets returns all targets ordered by name.
func (s *Store) ListTargets(ctx context.Context) (_ []models.Target, err error) {
	defer observe("select", "targets", time.Now(), &err)

	var rows []targetRow
	if err = s.db.NewSelect().Model(&rows).OrderExpr("name ASC, created_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}

	targets := make([]models.Target, 0, len(rows))
	for _, row := range rows {
		targets = append(targets, targetFromRow(row))
	}
	return targets, nil
}

// ListEnabledTargets returns the targets the scheduler should hold jobs for.
func (s *Store) ListEnabledTargets(ctx context.Context) (_ []models.Target, err error) {
	defer observe("select", "targets", time.Now(), &err)

	var rows []targetRow
	err = s.db.NewSelect().Model(&rows).
		Where("enabled = ?", true).
		OrderExpr("name ASC, created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled targets: %w", err)
	}

	targets := make([]models.Target, 0, len(rows))
	for _, row := range rows {
		targets = append(targets, targetFromRow(row))
	}
	return targets, nil
}

// SetTargetLastSuccess records a verified backup and clears any previous
// error state.
func (s *Store) SetTargetLastSuccess(ctx context.Context, id string, at time.Time) (err error) {
	defer observe("update", "targets", time.Now(), &err)

	res, err := s.db.NewUpdate().Model((*targetRow)(nil)).
		Set("last_success_at = ?", at.UTC()).
		Set("last_error = ''").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set last success: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTargetNotFound
	}
	return nil
}

// SetTargetLastError records the most recent failure. The last success
// timestamp is preserved so operators can see how stale the target is.
func (s *Store) SetTargetLastError(ctx context.Context, id string, message string) (err error) {
	defer observe("update", "targets", time.Now(), &err)

	res, err := s.db.NewUpdate().Model((*targetRow)(nil)).
		Set("last_error = ?", message).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set last error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTargetNotFound
	}
	return nil
}
