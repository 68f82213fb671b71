// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package services

import "context"

// BackupScheduler is the lifecycle slice of *scheduler.Scheduler the
// wrapper needs. Run blocks until ctx is canceled and drains in-flight
// executions before returning.
type BackupScheduler interface {
	Run(ctx context.Context) error
}

// SchedulerService runs the backup scheduler under supervision.
type SchedulerService struct {
	scheduler BackupScheduler
	name      string
}

// NewSchedulerService wraps the scheduler for the core layer.
func NewSchedulerService(scheduler BackupScheduler) *SchedulerService {
	return &SchedulerService{
		scheduler: scheduler,
		name:      "backup-scheduler",
	}
}

// Serve implements suture.Service by delegating to the scheduler's Run.
func (s *SchedulerService) Serve(ctx context.Context) error {
	return s.scheduler.Run(ctx)
}

// String identifies the service in supervisor logs.
func (s *SchedulerService) String() string {
	return s.name
}
