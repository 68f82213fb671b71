// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/checkpoint/internal/middleware"
)

// NewRouter assembles the chi router. Middleware order: request id first so
// every later stage logs with it, CORS global so OPTIONS preflight works on
// every route, then per-group rate limits and metrics inside /api/v1.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(h.config.API.CORSOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RequestLogger())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondErrorCode(r, w, http.StatusNotFound, "NOT_FOUND", "no such endpoint", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondErrorCode(r, w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed for this endpoint", nil)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Metrics())
		r.Use(rateLimit(h))

		r.Route("/targets", func(r chi.Router) {
			r.Get("/", h.ListTargets)
			r.Post("/", h.CreateTarget)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetTarget)
				r.Put("/", h.UpdateTarget)
				r.Delete("/", h.DeleteTarget)
				r.Post("/test", h.TestTarget)
				r.Post("/backups", h.CreateBackup)
				r.Get("/backups", h.ListTargetBackups)
			})
		})

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", h.ListBackups)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", h.DeleteBackup)
				r.Get("/download", h.DownloadBackup)
				r.Post("/restore", h.RestoreBackup)
			})
		})
	})

	return r
}

// corsMiddleware builds the CORS handler. An empty origin list keeps the
// API same-origin only; preflight requests still get answered.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}

// rateLimit limits by client IP, after RealIP has unwrapped proxies.
func rateLimit(h *Handler) func(http.Handler) http.Handler {
	if h.config.API.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		h.config.API.RateLimitReqs,
		h.config.API.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)
}
