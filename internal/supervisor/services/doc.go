// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

/*
Package services wraps checkpointd components as suture.Service
implementations.

Each wrapper translates a component lifecycle into suture's Serve(ctx)
contract: run until the context is canceled, shut the component down, and
return ctx.Err() so the supervisor can tell orderly shutdown from a crash.
Two lifecycle shapes appear here:

  - http.Server blocks in ListenAndServe and needs an explicit Shutdown
    call with its own timeout (HTTPServerService).
  - The scheduler and the notification dispatcher already expose a
    context-bound Run that blocks and drains itself, so their wrappers
    are straight delegates (SchedulerService, DispatcherService).

Wrappers depend on small local interfaces rather than the concrete
component types, which keeps this package import-light and lets tests
substitute doubles.
*/
package services
