// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/tomtom215/checkpoint/internal/logging"
)

// retentionKey is the reserved journal key for the daily retention sweep.
// Target ids are UUIDs, so the reserved key cannot collide with one.
const retentionKey = "retention-sweep"

// Journal records the last planned fire instant per trigger so schedules
// survive process restarts. Keys are target ids plus the reserved retention
// key; values are RFC 3339 timestamps. Writes are synced: a journal entry
// that claims an instant was handled must still claim it after a crash.
type Journal struct {
	db *badger.DB
}

// OpenJournal opens (or creates) the fire journal at path. The journal
// holds one tiny value per target, so BadgerDB's default memory appetite
// is trimmed down and compression is left off.
func OpenJournal(path string) (*Journal, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true
	opts.Compression = options.None
	opts.MemTableSize = 8 << 20
	opts.ValueLogFileSize = 16 << 20
	opts.NumCompactors = 2
	opts.BlockCacheSize = 0
	opts.IndexCacheSize = 0
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	logging.Info().Str("path", path).Msg("Fire journal opened")
	return &Journal{db: db}, nil
}

// LastFire returns the recorded fire instant for key. ok is false when the
// journal has no entry yet, which is not an error.
func (j *Journal) LastFire(key string) (at time.Time, ok bool, err error) {
	var raw []byte
	err = j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read journal entry: %w", err)
	}

	at, err = time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse journal entry for %q: %w", key, err)
	}
	return at, true, nil
}

// Advance records at as the last planned fire instant for key. The entry
// is advanced for dropped fires too; a dropped instant is handled, not
// pending.
func (j *Journal) Advance(key string, at time.Time) error {
	data := []byte(at.Format(time.RFC3339Nano))
	err := j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("advance journal entry: %w", err)
	}
	return nil
}

// Forget removes the journal entry for key, typically when its target is
// deleted or disabled. Missing keys are not an error.
func (j *Journal) Forget(key string) error {
	err := j.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("drop journal entry: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying database.
func (j *Journal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}
	return nil
}
