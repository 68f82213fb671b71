// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

// Package store is the metadata layer for targets and artifact records,
// backed by SQLite through bun. The schema is applied idempotently at open,
// so a fresh database file needs no separate migration step.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/tomtom215/checkpoint/internal/config"
	"github.com/tomtom215/checkpoint/internal/logging"
	"github.com/tomtom215/checkpoint/internal/metrics"
)

// Store errors.
var (
	ErrTargetNotFound = errors.New("target not found")
	ErrRecordNotFound = errors.New("artifact record not found")
)

// Store wraps the SQLite database holding targets and artifact records.
type Store struct {
	db     *bun.DB
	logger zerolog.Logger
}

// Open connects to the SQLite database at cfg.Path, applies pragmas and the
// schema, and returns a ready Store. The parent directory must already exist.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	sqldb, err := sql.Open("sqlite", buildDSN(cfg.Path, cfg.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers regardless of pool size; a small pool keeps
	// read concurrency without piling up lock contention. In-memory databases
	// exist per connection, so they get exactly one.
	if isMemoryPath(cfg.Path) {
		sqldb.SetMaxOpenConns(1)
		sqldb.SetMaxIdleConns(1)
	} else {
		sqldb.SetMaxOpenConns(4)
		sqldb.SetMaxIdleConns(4)
		sqldb.SetConnMaxLifetime(time.Hour)
	}

	if err := applySchema(sqldb); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:     bun.NewDB(sqldb, sqlitedialect.New()),
		logger: logging.WithComponent("store"),
	}
	s.logger.Info().Str("path", cfg.Path).Msg("Database ready")
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity; used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// buildDSN renders a modernc.org/sqlite DSN with the pragmas the service
// relies on. In-memory paths pass through untouched for tests.
func buildDSN(path string, busyTimeout time.Duration) string {
	if isMemoryPath(path) {
		return path
	}
	ms := busyTimeout.Milliseconds()
	if ms <= 0 {
		ms = 5000
	}
	return fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)",
		path, ms,
	)
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}

// observe feeds the query metrics; callers defer it with their start time.
// Not-found outcomes are normal control flow, not query failures.
func observe(operation, table string, start time.Time, err *error) {
	e := *err
	if errors.Is(e, ErrTargetNotFound) || errors.Is(e, ErrRecordNotFound) {
		e = nil
	}
	metrics.RecordDBQuery(operation, table, time.Since(start), e)
}
