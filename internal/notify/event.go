// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

// Package notify delivers operation outcome notifications to configured
// webhook endpoints off the critical path.
//
// Events are published onto an in-process pub/sub and fanned out to
// endpoints by a bounded worker pool, so a slow or failing webhook can
// never stall a backup or restore. The Publisher contract is deliberately
// error-free: delivery problems are logged and counted inside this
// package and are invisible to the operation that raised the event.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tomtom215/checkpoint/internal/models"
)

// Kind identifies a notification event type on the wire.
type Kind string

const (
	// KindBackupSuccess is published after a backup archive lands on disk.
	KindBackupSuccess Kind = "backup_success"
	// KindBackupFailed is published when a backup attempt fails for any reason.
	KindBackupFailed Kind = "backup_failed"
	// KindRestoreSuccess is published after an archive is uploaded back to its appliance.
	KindRestoreSuccess Kind = "restore_success"
	// KindRestoreFailed is published when a restore attempt fails.
	KindRestoreFailed Kind = "restore_failed"
	// KindConnectionLost is published when an appliance is unreachable.
	KindConnectionLost Kind = "connection_lost"
)

// Failed reports whether the kind describes a failed operation.
// Rendering endpoints use this for color selection.
func (k Kind) Failed() bool {
	return strings.Contains(string(k), "failed") || k == KindConnectionLost
}

// timestampLayout is the human-readable form used in rendered notifications.
const timestampLayout = "2006-01-02 15:04:05"

// Event is one notification payload. The JSON form is also the generic
// webhook wire format.
type Event struct {
	Kind       Kind              `json:"event"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	TargetName string            `json:"target"`
	Timestamp  time.Time         `json:"timestamp"`
	Details    map[string]string `json:"details,omitempty"`
}

// FormattedTime returns the event timestamp in the rendered notification form.
func (e Event) FormattedTime() string {
	return e.Timestamp.Format(timestampLayout)
}

// Publisher accepts events for asynchronous delivery.
//
// Publish never blocks beyond a channel handoff and never reports an
// error: notification outcome must not be able to alter the result of
// the operation that produced the event.
type Publisher interface {
	Publish(event Event)
}

// Discard is a Publisher that drops every event. It stands in for the
// dispatcher when notifications are disabled or no endpoint is configured.
var Discard Publisher = discardPublisher{}

type discardPublisher struct{}

func (discardPublisher) Publish(Event) {}

// BackupSucceeded builds the event for a completed backup.
func BackupSucceeded(targetName string, record *models.ArtifactRecord) Event {
	return Event{
		Kind:       KindBackupSuccess,
		Title:      "Backup Completed",
		Message:    fmt.Sprintf("Successfully created backup: %s", record.Filename),
		TargetName: targetName,
		Timestamp:  time.Now(),
		Details:    map[string]string{"File size": humanize.Comma(record.FileSize) + " bytes"},
	}
}

// BackupFailed builds the event for a failed backup attempt.
func BackupFailed(targetName string, cause error) Event {
	return Event{
		Kind:       KindBackupFailed,
		Title:      "Backup Failed",
		Message:    fmt.Sprintf("Failed to create backup: %v", cause),
		TargetName: targetName,
		Timestamp:  time.Now(),
		Details:    map[string]string{"Error": cause.Error()},
	}
}

// RestoreSucceeded builds the event for a completed restore.
func RestoreSucceeded(targetName, filename string) Event {
	return Event{
		Kind:       KindRestoreSuccess,
		Title:      "Restore Completed",
		Message:    fmt.Sprintf("Successfully restored backup: %s", filename),
		TargetName: targetName,
		Timestamp:  time.Now(),
	}
}

// RestoreFailed builds the event for a failed restore attempt.
func RestoreFailed(targetName, filename string, cause error) Event {
	return Event{
		Kind:       KindRestoreFailed,
		Title:      "Restore Failed",
		Message:    fmt.Sprintf("Failed to restore backup: %s", filename),
		TargetName: targetName,
		Timestamp:  time.Now(),
		Details:    map[string]string{"Error": cause.Error()},
	}
}

// ConnectionLost builds the event for an unreachable appliance.
func ConnectionLost(targetName string, cause error) Event {
	return Event{
		Kind:       KindConnectionLost,
		Title:      "Connection Lost",
		Message:    fmt.Sprintf("Appliance %s is unreachable", targetName),
		TargetName: targetName,
		Timestamp:  time.Now(),
		Details:    map[string]string{"Error": cause.Error()},
	}
}
