// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/checkpoint/internal/config"
)

// NewServer builds the http.Server serving the API.
//
// WriteTimeout stays unset: manual backups, restores and artifact downloads
// legitimately hold the response open for minutes. Those handlers bound
// themselves with the execution timeout instead, and ReadHeaderTimeout
// still protects against slowloris connections.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
