// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/checkpoint/internal/backup"
	"github.com/tomtom215/checkpoint/internal/logging"
	"github.com/tomtom215/checkpoint/internal/metrics"
	"github.com/tomtom215/checkpoint/internal/models"
)

// Store provides the enabled target set the scheduler reconciles its job
// table against.
type Store interface {
	ListEnabledTargets(ctx context.Context) ([]models.Target, error)
}

// Runner executes the work behind fired triggers.
type Runner interface {
	CreateBackup(ctx context.Context, target *models.Target, trigger models.RecordTrigger) (*models.ArtifactRecord, error)
	EnforceAll(ctx context.Context) (backup.Result, error)
	CleanupOrphans(ctx context.Context) (files, records int, err error)
}

var _ Runner = (*backup.Engine)(nil)

// Fire dispositions recorded per evaluated trigger.
const (
	dispositionRun         = "run"
	dispositionCoalesced   = "coalesced"
	dispositionDropped     = "dropped"
	dispositionSkippedLock = "skipped_lock"
)

// drainTimeout bounds the shutdown wait for in-flight executions. Their
// contexts are already canceled by then, so transfers abort quickly.
const drainTimeout = 30 * time.Second

// Config tunes the scheduling loop.
type Config struct {
	// Enabled turns trigger evaluation on. A disabled scheduler still
	// runs so health checks and supervision stay uniform.
	Enabled bool

	// CheckInterval is the trigger evaluation cadence.
	CheckInterval time.Duration

	// ReconcileInterval bounds how long a target edit can go unnoticed.
	ReconcileInterval time.Duration

	// MaxConcurrent bounds simultaneous backup executions.
	MaxConcurrent int

	// ExecutionTimeout bounds a single backup or sweep execution.
	ExecutionTimeout time.Duration

	// MissedFireGrace is the catch-up window for trigger instants missed
	// while the process was down. Older instants are dropped.
	MissedFireGrace time.Duration

	// RetentionTime is the daily retention sweep time in 24h "HH:MM".
	RetentionTime string
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		CheckInterval:     30 * time.Second,
		ReconcileInterval: 5 * time.Minute,
		MaxConcurrent:     4,
		ExecutionTimeout:  10 * time.Minute,
		MissedFireGrace:   time.Hour,
		RetentionTime:     "04:00",
	}
}

// job is one target's position in the schedule.
type job struct {
	target models.Target
	trig   trigger

	// fingerprint detects schedule edits so the trigger can be rebuilt
	// without disturbing jobs whose schedule did not change.
	fingerprint string

	next time.Time
}

func scheduleFingerprint(t *models.Target) string {
	return fmt.Sprintf("%s|%s|%d", t.Frequency, t.AtTime, t.Weekday)
}

// Scheduler owns the trigger evaluation loop: one job per enabled target,
// plus the reserved daily retention sweep. The job table follows the store
// within one ReconcileInterval of any change.
type Scheduler struct {
	store   Store
	runner  Runner
	journal *Journal
	config  Config
	logger  zerolog.Logger

	locks *lockArena
	sem   chan struct{}
	wg    sync.WaitGroup

	// clock is replaceable in tests.
	clock func() time.Time

	retentionTrig trigger

	mu            sync.Mutex
	jobs          map[string]*job
	retentionNext time.Time
	lastTick      time.Time
}

// New wires a scheduler over the given collaborators. Zero config values
// fall back to defaults. The journal must outlive the scheduler; callers
// close it after Run returns.
func New(st Store, runner Runner, journal *Journal, cfg Config) (*Scheduler, error) {
	defaults := DefaultConfig()
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaults.CheckInterval
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaults.ReconcileInterval
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaults.MaxConcurrent
	}
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = defaults.ExecutionTimeout
	}
	if cfg.MissedFireGrace <= 0 {
		cfg.MissedFireGrace = defaults.MissedFireGrace
	}
	if cfg.RetentionTime == "" {
		cfg.RetentionTime = defaults.RetentionTime
	}

	at, err := time.Parse("15:04", cfg.RetentionTime)
	if err != nil {
		return nil, fmt.Errorf("invalid retention time %q: %w", cfg.RetentionTime, err)
	}

	return &Scheduler{
		store:   st,
		runner:  runner,
		journal: journal,
		config:  cfg,
		logger:  logging.WithComponent("scheduler"),
		locks:   newLockArena(),
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		clock:   time.Now,
		retentionTrig: trigger{
			frequency: models.FrequencyDaily,
			hour:      at.Hour(),
			minute:    at.Minute(),
		},
		jobs: make(map[string]*job),
	}, nil
}

// Run drives the loop until ctx is canceled, then drains in-flight work.
// A disabled scheduler holds its position without evaluating triggers so
// the supervision tree sees a healthy service either way.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Scheduler disabled")
		<-ctx.Done()
		return nil
	}

	s.logger.Info().
		Dur("check_interval", s.config.CheckInterval).
		Dur("reconcile_interval", s.config.ReconcileInterval).
		Int("max_concurrent", s.config.MaxConcurrent).
		Str("retention_time", s.config.RetentionTime).
		Msg("Scheduler started")

	s.primeRetention()
	s.reconcile(ctx)
	s.tick(ctx)

	check := time.NewTicker(s.config.CheckInterval)
	defer check.Stop()
	resync := time.NewTicker(s.config.ReconcileInterval)
	defer resync.Stop()

	for {
		select {
		case <-ctx.Done():
			s.drain()
			s.logger.Info().Msg("Scheduler stopped")
			return nil
		case <-resync.C:
			s.reconcile(ctx)
		case <-check.C:
			s.tick(ctx)
		}
	}
}

// Heartbeat returns the time of the last trigger evaluation pass. Health
// probes treat a stale heartbeat as scheduler degradation.
func (s *Scheduler) Heartbeat() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick
}

// Jobs returns the number of scheduled per-target jobs.
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// primeRetention positions the retention trigger from the journal so a
// restart neither repeats nor skips the daily sweep.
func (s *Scheduler) primeRetention() {
	now := s.clock()
	last, ok, err := s.journal.LastFire(retentionKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read retention journal entry")
		ok = false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.retentionNext = s.retentionTrig.next(last)
	} else {
		s.retentionNext = s.retentionTrig.next(now)
	}
}

// reconcile aligns the job table with the enabled target set: one job per
// target, triggers rebuilt on schedule edits, jobs and journal entries
// removed for targets that are gone or disabled.
func (s *Scheduler) reconcile(ctx context.Context) {
	targets, err := s.store.ListEnabledTargets(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list targets for reconciliation")
		return
	}

	now := s.clock()
	seen := make(map[string]struct{}, len(targets))

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range targets {
		target := targets[i]
		seen[target.ID] = struct{}{}

		trig, err := newTrigger(&target)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("target_id", target.ID).
				Str("target", target.Name).
				Msg("Target has an unusable schedule")
			delete(s.jobs, target.ID)
			continue
		}

		fingerprint := scheduleFingerprint(&target)
		if existing, ok := s.jobs[target.ID]; ok {
			existing.target = target
			if existing.fingerprint != fingerprint {
				// Schedule edits take effect at the next natural
				// occurrence, not retroactively.
				existing.trig = trig
				existing.fingerprint = fingerprint
				existing.next = trig.next(now)
				s.logger.Debug().
					Str("target_id", target.ID).
					Time("next_fire", existing.next).
					Msg("Job rescheduled")
			}
			continue
		}

		jb := &job{target: target, trig: trig, fingerprint: fingerprint}
		last, ok, err := s.journal.LastFire(target.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("target_id", target.ID).Msg("Failed to read journal entry")
			ok = false
		}
		if ok {
			jb.next = trig.next(last)
		} else {
			jb.next = trig.next(now)
		}
		s.jobs[target.ID] = jb
		s.logger.Debug().
			Str("target_id", target.ID).
			Str("target", target.Name).
			Time("next_fire", jb.next).
			Msg("Job scheduled")
	}

	for id := range s.jobs {
		if _, ok := seen[id]; ok {
			continue
		}
		delete(s.jobs, id)
		if err := s.journal.Forget(id); err != nil {
			s.logger.Warn().Err(err).Str("target_id", id).Msg("Failed to drop journal entry")
		}
		s.logger.Debug().Str("target_id", id).Msg("Job removed")
	}
}

// tick evaluates every trigger once and dispatches due work to the worker
// pool. The loop itself never waits on job work.
func (s *Scheduler) tick(ctx context.Context) {
	type firing struct {
		target    models.Target
		scheduled time.Time
		latest    time.Time
	}

	now := s.clock()

	s.mu.Lock()
	s.lastTick = now
	jobCount := len(s.jobs)

	var due []firing
	for _, jb := range s.jobs {
		if jb.next.After(now) {
			continue
		}
		scheduled := jb.next
		latest, next := catchUp(jb.trig, scheduled, now)
		jb.next = next
		due = append(due, firing{target: jb.target, scheduled: scheduled, latest: latest})
	}

	retentionDue := false
	var retentionFire firing
	if !s.retentionNext.After(now) {
		scheduled := s.retentionNext
		latest, next := catchUp(s.retentionTrig, scheduled, now)
		s.retentionNext = next
		retentionDue = true
		retentionFire = firing{scheduled: scheduled, latest: latest}
	}
	s.mu.Unlock()

	metrics.RecordSchedulerTick(jobCount)

	for _, f := range due {
		if err := s.journal.Advance(f.target.ID, f.latest); err != nil {
			s.logger.Warn().Err(err).Str("target_id", f.target.ID).Msg("Failed to advance journal")
		}

		late := now.Sub(f.latest)
		if late > s.config.MissedFireGrace {
			metrics.RecordFire(dispositionDropped)
			s.logger.Warn().
				Str("target", f.target.Name).
				Time("scheduled", f.latest).
				Dur("late", late).
				Msg("Dropped fire outside catch-up window")
			continue
		}

		disposition := dispositionRun
		if !f.latest.Equal(f.scheduled) || late > s.config.CheckInterval {
			disposition = dispositionCoalesced
		}

		s.wg.Add(1)
		go s.execute(ctx, f.target, disposition)
	}

	if retentionDue {
		if err := s.journal.Advance(retentionKey, retentionFire.latest); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to advance retention journal entry")
		}

		late := now.Sub(retentionFire.latest)
		if late > s.config.MissedFireGrace {
			metrics.RecordFire(dispositionDropped)
			s.logger.Warn().
				Time("scheduled", retentionFire.latest).
				Dur("late", late).
				Msg("Dropped retention sweep outside catch-up window")
			return
		}

		disposition := dispositionRun
		if !retentionFire.latest.Equal(retentionFire.scheduled) || late > s.config.CheckInterval {
			disposition = dispositionCoalesced
		}

		s.wg.Add(1)
		go s.sweep(ctx, disposition)
	}
}

// execute runs one scheduled backup under the target's exclusive lock and
// a worker pool slot. Lock contention means the previous run is still in
// progress; the fire is skipped, never queued.
func (s *Scheduler) execute(ctx context.Context, target models.Target, disposition string) {
	defer s.wg.Done()

	if err := s.locks.TryAcquire(target.ID); err != nil {
		metrics.RecordFire(dispositionSkippedLock)
		s.logger.Warn().
			Str("target_id", target.ID).
			Str("target", target.Name).
			Msg("Skipped fire, previous run still in progress")
		return
	}
	defer s.locks.Release(target.ID)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-s.sem }()

	metrics.RecordFire(disposition)

	execCtx, cancel := context.WithTimeout(ctx, s.config.ExecutionTimeout)
	defer cancel()

	if _, err := s.runner.CreateBackup(execCtx, &target, models.TriggerScheduled); err != nil {
		// The engine already recorded and notified the failure.
		s.logger.Error().
			Err(err).
			Str("target", target.Name).
			Msg("Scheduled backup failed")
	}
}

// sweep runs the daily retention pass followed by orphan cleanup. It does
// not take a worker pool slot; retention is local bookkeeping and must not
// contend with backup transfers.
func (s *Scheduler) sweep(ctx context.Context, disposition string) {
	defer s.wg.Done()

	if err := s.locks.TryAcquire(retentionKey); err != nil {
		metrics.RecordFire(dispositionSkippedLock)
		s.logger.Warn().Msg("Skipped retention sweep, previous sweep still in progress")
		return
	}
	defer s.locks.Release(retentionKey)

	metrics.RecordFire(disposition)

	execCtx, cancel := context.WithTimeout(ctx, s.config.ExecutionTimeout)
	defer cancel()

	if _, err := s.runner.EnforceAll(execCtx); err != nil {
		s.logger.Error().Err(err).Msg("Retention sweep failed")
	}
	if _, _, err := s.runner.CleanupOrphans(execCtx); err != nil {
		s.logger.Error().Err(err).Msg("Orphan cleanup failed")
	}
}

// drain waits for in-flight executions, bounded so shutdown cannot hang on
// a stuck transfer. Execution contexts are child contexts of the canceled
// run context, so work in flight is already unwinding.
func (s *Scheduler) drain() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainTimeout):
		s.logger.Warn().
			Dur("timeout", drainTimeout).
			Msg("Shutdown drain timed out with executions in flight")
	}
}
