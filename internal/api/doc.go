// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

// Package api is the HTTP boundary. It exposes target management, backup
// operations and health probes over a chi router and stays deliberately
// thin: handlers decode and validate requests, call the store, the backup
// engine or an appliance session, and translate errors into the shared
// response envelope. No orchestration logic lives here.
//
// # Surface
//
//	GET    /health                       full health report
//	GET    /health/live                  process liveness
//	GET    /health/ready                 store + scheduler readiness
//	GET    /metrics                      Prometheus exposition
//	GET    /api/v1/targets               list targets
//	POST   /api/v1/targets               create target
//	GET    /api/v1/targets/{id}          fetch target
//	PUT    /api/v1/targets/{id}          update target
//	DELETE /api/v1/targets/{id}          delete target
//	POST   /api/v1/targets/{id}/test     connectivity probe
//	POST   /api/v1/targets/{id}/backups  trigger manual backup
//	GET    /api/v1/targets/{id}/backups  list target's records
//	GET    /api/v1/backups               list records across targets
//	GET    /api/v1/backups/{id}/download stream artifact
//	DELETE /api/v1/backups/{id}          delete record and artifact
//	POST   /api/v1/backups/{id}/restore  upload artifact back, needs confirm
//
// # Envelope
//
// Every JSON response is a models.APIResponse with status "success" or
// "error" plus a timestamp. Failures carry a models.APIError whose code
// distinguishes validation problems, missing resources and the appliance
// failure classes (connection, TLS, auth, protocol) so clients can react
// without parsing message text. Responses are marked Cache-Control:
// no-store; everything served here is mutable admin state.
package api
