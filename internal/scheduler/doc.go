// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

// Package scheduler fires per-target backup triggers and the daily
// retention sweep.
//
// # Scheduling model
//
// The scheduler keeps exactly one job per enabled target, keyed by target
// id. A reconciliation pass re-reads the target set on its own interval, so
// create, edit, disable and delete all propagate within one
// ReconcileInterval without restarts. A separate check pass evaluates every
// trigger on the CheckInterval and dispatches due work to a bounded worker
// pool; the loop itself never waits on job work.
//
// Triggers are pure wall-clock arithmetic. Hourly targets fire at a fixed
// minute offset each hour, daily targets at HH:MM, weekly targets at HH:MM
// on a weekday. Nothing is computed relative to process start.
//
// # Restart behavior
//
// Every planned fire instant is written to a BadgerDB journal before the
// work is dispatched. After a restart the next fire is derived from the
// journal entry, so a process that was down across a trigger instant runs
// one coalesced catch-up backup if the instant is within MissedFireGrace,
// and drops it otherwise. The journal advances either way.
//
// # Concurrency
//
// Each target carries an exclusive non-blocking lock. A trigger firing
// while the previous run is still in progress is skipped with a warning,
// never queued. Executions take a slot on a semaphore bounding global
// concurrency and run under a per-execution timeout. Shutdown stops
// accepting fires and drains in-flight work with a bounded wait.
package scheduler
