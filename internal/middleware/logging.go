// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package middleware

import (
	"net/http"
	"time"

	"github.com/tomtom215/checkpoint/internal/logging"
)

// RequestLogger returns a middleware that logs one completion line per
// request. Server errors log at error level, client errors at warn, and
// everything else at debug so routine traffic stays out of production logs.
func RequestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(ww, r)

			log := logging.Ctx(r.Context())
			evt := log.Debug()
			switch {
			case ww.status >= http.StatusInternalServerError:
				evt = log.Error()
			case ww.status >= http.StatusBadRequest:
				evt = log.Warn()
			}

			evt.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", ww.status).
				Int("bytes", ww.bytes).
				Dur("duration", time.Since(start)).
				Msg("Request completed")
		})
	}
}
