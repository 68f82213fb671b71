// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

// Package models defines the shared domain types for Checkpoint: backup
// targets, artifact records, and the API response envelope.
//
// Persistence tags live in internal/store's row types, not here; these types
// carry only JSON tags for the HTTP boundary plus validation tags for
// request checking.
package models
