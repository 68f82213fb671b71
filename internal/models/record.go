// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package models

import "time"

// RecordStatus is the terminal outcome of a backup operation.
type RecordStatus string

// Artifact record outcomes. Records are written only at operation end, so
// there is no pending state: a record is either a verified success or a
// captured failure.
const (
	StatusSuccess RecordStatus = "success"
	StatusFailed  RecordStatus = "failed"
)

// RecordTrigger distinguishes operator-requested backups from scheduled ones.
type RecordTrigger string

// Artifact record provenance.
const (
	TriggerManual    RecordTrigger = "manual"
	TriggerScheduled RecordTrigger = "scheduled"
)

// ArtifactRecord is the metadata row for one completed or attempted backup.
//
// Invariants:
//   - a success record's Checksum matches the bytes at FilePath until either
//     is deleted, and both are deleted together (file first);
//   - a failed record never references a partially written file (FilePath is
//     empty and FileSize zero).
type ArtifactRecord struct {
	ID       string `json:"id"`
	TargetID string `json:"target_id"`

	Filename string `json:"filename"`
	FilePath string `json:"file_path,omitempty"`
	FileSize int64  `json:"file_size"`

	// Checksum is the SHA-256 of the artifact bytes, hex encoded.
	Checksum string `json:"checksum,omitempty"`

	Status RecordStatus `json:"status"`
	Error  string       `json:"error,omitempty"`

	Trigger   RecordTrigger `json:"trigger"`
	CreatedAt time.Time     `json:"created_at"`
}

// Succeeded reports whether the record captured a verified backup.
func (r *ArtifactRecord) Succeeded() bool {
	return r.Status == StatusSuccess
}
