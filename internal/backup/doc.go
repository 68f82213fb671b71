// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

// Package backup creates, restores, and retires backup artifacts for the
// configured appliance targets.
//
// # Overview
//
// The Engine pulls a Teleporter archive from an appliance, lands it in the
// artifact directory, and records the outcome in the metadata store. Every
// operation ends in a terminal record: a success record exists only after
// the file is written and its checksum verified, and a failed record never
// points at a file.
//
// # Artifact lifecycle
//
//	create  - download, write 0600, checksum, insert success record
//	restore - verify file + checksum, upload back to the appliance
//	retire  - retention policies delete file first, then the record
//
// Retention applies two independent per-target policies (keep the newest
// max_count successes, drop anything older than max_age_days), cleans up
// failed records after a week, and reclaims orphans left by crashes.
//
// # Notifications
//
// Operations publish success and failure events through a notify.Publisher.
// Delivery is asynchronous and isolated: a notification problem can never
// change the result of the operation that raised it.
package backup
