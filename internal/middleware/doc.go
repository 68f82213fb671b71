// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

// Package middleware provides chi-compatible HTTP middleware shared by the
// API router.
//
// All middleware here has the standard chi signature
// func(http.Handler) http.Handler and composes with the stock chi middleware
// (RealIP, Recoverer) plus go-chi/cors and go-chi/httprate, which are wired
// directly in the router.
//
// The set:
//
//   - RequestID assigns or propagates an X-Request-ID and injects it into
//     the zerolog logging context, so every log line emitted while serving
//     the request carries the id.
//   - RequestLogger emits one structured completion line per request with
//     method, route, status and duration.
//   - Metrics records per-route Prometheus counters and latency histograms
//     and tracks the in-flight request gauge. Routes are labelled by chi
//     route pattern, not raw path, to keep label cardinality bounded.
//   - SecurityHeaders sets the standard hardening headers for a JSON API.
//
// Ordering matters: RequestID must run before RequestLogger so the
// completion line carries the request id.
package middleware
