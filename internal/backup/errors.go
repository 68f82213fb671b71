// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package backup

import (
	"errors"
	"fmt"
)

var (
	// ErrConfirmationRequired rejects a restore that was not explicitly
	// confirmed by the caller. Nothing has happened when it is returned.
	ErrConfirmationRequired = errors.New("restore requires explicit confirmation")

	// ErrTargetMissing marks an operation on a record whose owning target
	// has been deleted. Such records can still be downloaded and deleted,
	// but not restored.
	ErrTargetMissing = errors.New("owning target no longer exists")
)

// NotFoundError reports a record whose artifact file is gone from disk.
type NotFoundError struct {
	Filename string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("backup file not found: %s", e.Filename)
}

// IntegrityError reports an artifact whose bytes no longer match the
// checksum captured when it was created. The file is left in place for
// inspection and is never uploaded.
type IntegrityError struct {
	Filename string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("backup file corrupted (checksum mismatch): %s", e.Filename)
}
