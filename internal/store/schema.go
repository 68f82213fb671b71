// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// schemaContext bounds schema application at startup.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// applySchema creates tables and indexes. Every statement is idempotent, so
// this runs unconditionally at open.
func applySchema(db *sql.DB) error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range schemaStatements() {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %s: %w", query, err)
		}
	}
	return nil
}

// schemaStatements returns the table and index creation SQL.
//
// Timestamps are stored in UTC so that string ordering matches chronological
// ordering under SQLite's TEXT affinity.
func schemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS targets (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			base_url        TEXT NOT NULL,
			credential      TEXT NOT NULL,
			verify_tls      INTEGER NOT NULL DEFAULT 0,
			frequency       TEXT NOT NULL,
			at_time         TEXT NOT NULL,
			weekday         INTEGER NOT NULL DEFAULT 0,
			max_count       INTEGER NOT NULL DEFAULT 0,
			max_age_days    INTEGER NOT NULL DEFAULT 0,
			enabled         INTEGER NOT NULL DEFAULT 1,
			last_success_at TIMESTAMP,
			last_error      TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMP NOT NULL,
			updated_at      TIMESTAMP NOT NULL
		)`,

		// "trigger" is reserved in SQLite, hence trigger_kind.
		`CREATE TABLE IF NOT EXISTS artifact_records (
			id           TEXT PRIMARY KEY,
			target_id    TEXT NOT NULL,
			filename     TEXT NOT NULL,
			file_path    TEXT NOT NULL DEFAULT '',
			file_size    INTEGER NOT NULL DEFAULT 0,
			checksum     TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL,
			error        TEXT NOT NULL DEFAULT '',
			trigger_kind TEXT NOT NULL,
			created_at   TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_records_target_created
			ON artifact_records (target_id, created_at DESC)`,

		`CREATE INDEX IF NOT EXISTS idx_records_status_created
			ON artifact_records (status, created_at)`,

		`CREATE INDEX IF NOT EXISTS idx_targets_enabled
			ON targets (enabled)`,
	}
}
