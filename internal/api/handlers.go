// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package api

import (
	"time"

	"github.com/tomtom215/checkpoint/internal/appliance"
	"github.com/tomtom215/checkpoint/internal/backup"
	"github.com/tomtom215/checkpoint/internal/config"
	"github.com/tomtom215/checkpoint/internal/secrets"
	"github.com/tomtom215/checkpoint/internal/store"
)

// Scheduler is the slice of the scheduler the API needs for health
// reporting.
type Scheduler interface {
	// Heartbeat returns the time of the last completed check cycle, zero
	// before the first one.
	Heartbeat() time.Time
	// Jobs returns the number of scheduled per-target jobs.
	Jobs() int
}

// Handler carries the collaborators shared by all endpoint handlers.
type Handler struct {
	store     *store.Store
	engine    *backup.Engine
	clients   appliance.Factory
	keeper    *secrets.Keeper
	scheduler Scheduler
	config    *config.Config
	version   string
	startedAt time.Time
}

// NewHandler wires the endpoint handlers to their collaborators. version
// is reported by the health endpoints.
func NewHandler(
	st *store.Store,
	engine *backup.Engine,
	clients appliance.Factory,
	keeper *secrets.Keeper,
	scheduler Scheduler,
	cfg *config.Config,
	version string,
) *Handler {
	return &Handler{
		store:     st,
		engine:    engine,
		clients:   clients,
		keeper:    keeper,
		scheduler: scheduler,
		config:    cfg,
		version:   version,
		startedAt: time.Now(),
	}
}
