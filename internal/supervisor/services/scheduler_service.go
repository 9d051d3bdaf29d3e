// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"fmt"
)

// SchedulerManager interface matches the capture scheduler's lifecycle.
//
// This interface abstracts the scheduler's Start/Stop pattern, allowing
// SchedulerService to adapt it to suture's Serve pattern without
// modifying the scheduler code.
//
// Satisfied by *scheduler.Scheduler from internal/scheduler/scheduler.go.
type SchedulerManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService wraps the capture scheduler as a supervised service.
//
// It adapts the Start/Stop lifecycle pattern to suture's Serve pattern:
//  1. Calls Start(ctx) to begin the tick loop
//  2. Waits for context cancellation
//  3. Calls Stop() for graceful shutdown
type SchedulerService struct {
	manager SchedulerManager
	name    string
}

// NewSchedulerService creates a new scheduler service wrapper.
//
// Example usage:
//
//	sched := scheduler.New(store, orchestrator, queue, logger, cfg)
//	svc := services.NewSchedulerService(sched)
//	tree.AddMessagingService(svc)
func NewSchedulerService(manager SchedulerManager) *SchedulerService {
	return &SchedulerService{
		manager: manager,
		name:    "capture-scheduler",
	}
}

// Serve implements suture.Service.
//
// This method:
//  1. Starts the scheduler (which spawns its internal tick loop)
//  2. Blocks until the context is canceled
//  3. Stops the scheduler gracefully
//
// If Start() fails, the error is returned immediately, causing suture to
// restart the service according to its backoff policy.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("scheduler stop failed: %w", err)
	}

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *SchedulerService) String() string {
	return s.name
}
