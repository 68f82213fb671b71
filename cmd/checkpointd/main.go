// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

/*
Package main is the entry point for the checkpointd server.

Checkpoint schedules, captures, verifies, and retains configuration
backups from Pi-hole v6 appliances and exposes a REST API for managing
targets and their backup records.

# Application Architecture

Every long-lived component runs under a suture v4 supervision tree:

	root ("checkpoint")
	├── core-layer
	│   ├── backup-scheduler (trigger evaluation, retention sweep)
	│   └── notify-dispatcher (webhook/Discord/Slack delivery)
	└── api-layer
	    └── http-server (REST API, default :8395)

Component initialization order:

 1. Configuration: koanf v2 layering defaults, YAML file, environment
 2. Logging: global zerolog logger per LOG_LEVEL / LOG_FORMAT
 3. Metadata store: SQLite via bun (DATABASE_PATH)
 4. Credential keeper: AES-256-GCM sealing keyed from SECRET_KEY
 5. Notification dispatcher: watermill pub/sub with circuit breakers
 6. Backup engine: appliance session clients, archive verification
 7. Fire journal: BadgerDB under DATA_DIR/journal
 8. Scheduler: per-target triggers with missed-fire catch-up
 9. HTTP API: chi router, envelope responses, Prometheus metrics

# Configuration

Configuration is loaded via koanf v2 with layered sources, highest
priority last: built-in defaults, an optional YAML file (CONFIG_PATH or
the default search paths), then environment variables. Variables accept
an optional CHECKPOINT_ prefix; see internal/config for the full list.

Minimal production environment:

	export SECRET_KEY=$(openssl rand -base64 24)
	export DATABASE_PATH=/data/checkpoint.db
	export BACKUP_DIR=/data/backups
	export DATA_DIR=/data
	./checkpointd

# Signal Handling

SIGINT and SIGTERM begin graceful shutdown: the HTTP server drains
active requests, the scheduler finishes in-flight backup executions, and
the dispatcher flushes pending notifications, each bounded by the
supervisor's shutdown timeout.
*/
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tomtom215/checkpoint/internal/api"
	"github.com/tomtom215/checkpoint/internal/appliance"
	"github.com/tomtom215/checkpoint/internal/backup"
	"github.com/tomtom215/checkpoint/internal/config"
	"github.com/tomtom215/checkpoint/internal/logging"
	"github.com/tomtom215/checkpoint/internal/notify"
	"github.com/tomtom215/checkpoint/internal/scheduler"
	"github.com/tomtom215/checkpoint/internal/secrets"
	"github.com/tomtom215/checkpoint/internal/store"
	"github.com/tomtom215/checkpoint/internal/supervisor"
	"github.com/tomtom215/checkpoint/internal/supervisor/services"
)

// version is stamped by the linker: -ldflags "-X main.version=v1.2.3".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting Checkpoint")
	logging.Info().
		Str("listen_addr", cfg.Server.Addr()).
		Str("database_path", cfg.Database.Path).
		Str("backup_dir", cfg.Storage.BackupDir).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Configuration loaded")

	st, err := store.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open metadata store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing metadata store")
		}
	}()

	keeper, err := secrets.NewKeeper(cfg.Secrets.Key)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize credential keeper")
	}

	dispatcher := notify.NewDispatcher(cfg.Notify)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing notification dispatcher")
		}
	}()
	if n := dispatcher.Endpoints(); n > 0 {
		logging.Info().Int("endpoints", n).Msg("Notifications enabled")
	}

	clients := appliance.NewFactory()

	engine, err := backup.NewEngine(st, clients, keeper, dispatcher, cfg.Storage.BackupDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize backup engine")
	}

	journal, err := scheduler.OpenJournal(filepath.Join(cfg.Storage.DataDir, "journal"))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open fire journal")
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing fire journal")
		}
	}()

	sched, err := scheduler.New(st, engine, journal, scheduler.Config{
		Enabled:           cfg.Scheduler.Enabled,
		CheckInterval:     cfg.Scheduler.CheckInterval,
		ReconcileInterval: cfg.Scheduler.ReconcileInterval,
		MaxConcurrent:     cfg.Scheduler.MaxConcurrent,
		ExecutionTimeout:  cfg.Scheduler.ExecutionTimeout,
		MissedFireGrace:   cfg.Scheduler.MissedFireGrace,
		RetentionTime:     cfg.Scheduler.RetentionTime,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build scheduler")
	}

	handler := api.NewHandler(st, engine, clients, keeper, sched, cfg, version)
	server := api.NewServer(cfg.Server, api.NewRouter(handler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The slog bridge feeds supervisor lifecycle events into zerolog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddCoreService(services.NewSchedulerService(sched))
	tree.AddCoreService(services.NewDispatcherService(dispatcher))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervision tree")
	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervision tree failed")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Checkpoint stopped gracefully")
}
