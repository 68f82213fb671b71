// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package services

import "context"

// EventDispatcher is the lifecycle slice of *notify.Dispatcher the
// wrapper needs. Run blocks until ctx is canceled and drains in-flight
// deliveries before returning.
type EventDispatcher interface {
	Run(ctx context.Context) error
}

// DispatcherService runs the notification dispatcher under supervision.
// The dispatcher's Close stays with main: the pub/sub must outlive
// individual Serve cycles so a supervisor restart can resubscribe.
type DispatcherService struct {
	dispatcher EventDispatcher
	name       string
}

// NewDispatcherService wraps the dispatcher for the core layer.
func NewDispatcherService(dispatcher EventDispatcher) *DispatcherService {
	return &DispatcherService{
		dispatcher: dispatcher,
		name:       "notify-dispatcher",
	}
}

// Serve implements suture.Service by delegating to the dispatcher's Run.
func (s *DispatcherService) Serve(ctx context.Context) error {
	return s.dispatcher.Run(ctx)
}

// String identifies the service in supervisor logs.
func (s *DispatcherService) String() string {
	return s.name
}
