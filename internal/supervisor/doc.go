// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

/*
Package supervisor arranges checkpointd's long-running services into a
suture v4 supervision tree.

# Layout

The tree has two child layers for failure isolation:

	root ("checkpoint")
	├── core-layer
	│   ├── backup-scheduler
	│   └── notify-dispatcher
	└── api-layer
	    └── http-server

Each layer carries its own failure budget, so a crash loop in the core
layer never burns the API layer's restart allowance and the HTTP surface
stays up while the scheduler recovers (and vice versa).

# Restart behavior

Every supervisor counts failures with exponential decay. Below
TreeConfig.FailureThreshold a crashed service restarts immediately; above
it the supervisor waits TreeConfig.FailureBackoff between attempts.
Supervisor lifecycle events (service start, failure, restart, backoff) are
logged through the process zerolog sink via the sutureslog adapter and the
logging package's slog bridge.

# Shutdown

Canceling the context passed to Serve stops the tree. Each service gets
TreeConfig.ShutdownTimeout to return; after Serve comes back,
UnstoppedServiceReport names any service that did not.
*/
package supervisor
