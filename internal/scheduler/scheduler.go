// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scheduler runs the single tick loop that drives every capture
// window: deciding which schedules are currently active, dispatching
// capture bursts at each schedule's own interval, and detecting window
// close so a timelapse render job can be enqueued exactly once per
// session.
//
// scheduler.go - Tick Loop
//
// On every tick the scheduler:
//  1. Computes today's window (start, end) for each enabled schedule from
//     the configured location and the schedule's solar anchor or
//     time-of-day bounds.
//  2. Loads or creates the session for each (profile, schedule, date)
//     this schedule covers.
//  3. Dispatches a capture burst for any schedule currently inside its
//     window, gated so a burst fires no more often than the schedule's
//     own interval_seconds.
//  4. Detects the moment a window transitions from active to inactive and
//     marks the session complete.
//  5. Enqueues a timelapse job for a freshly closed window exactly once,
//     deduplicated by an in-process (schedule, profile, date) set that survives
//     until the job enqueues successfully.
//  6. Persists was_active after every decision so a crash mid-tick can
//     never silently miss a window transition on restart.
//  7. Never stops on a single schedule's error — a capture or ledger
//     failure is logged and the remaining schedules still run this tick.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/skyerr"
	"github.com/tomtom215/skylapse/internal/solar"
)

// SessionStore is the subset of ledger operations the scheduler needs.
type SessionStore interface {
	GetOrCreateSession(ctx context.Context, profileID, scheduleName, date string, start time.Time) (*models.Session, error)
	GetWasActive(ctx context.Context, sessionID string) (bool, error)
	UpdateWasActive(ctx context.Context, sessionID string, wasActive bool) error
	MarkSessionComplete(ctx context.Context, sessionID string, end time.Time) error
}

// CaptureOrchestrator runs one capture burst for a profile under a
// schedule, appending its resulting frames to the named session.
type CaptureOrchestrator interface {
	RunBurst(ctx context.Context, profile models.Profile, schedule models.Schedule, sessionID string) error
}

// JobEnqueuer hands a finished session off to the timelapse work queue.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job models.TimelapseJob) error
}

// Config is the scheduler's static configuration, assembled once from the
// loaded Config at startup.
type Config struct {
	Location  models.Location
	Schedules []models.Schedule
	Profiles  map[string]models.Profile // keyed by Profile.ID
}

// TickInterval returns the cadence the scheduler should tick at: the
// smallest interval_seconds among enabled schedules, capped at 30s so an
// idle deployment still polls for window transitions reasonably often.
func (c Config) TickInterval() time.Duration {
	const defaultInterval = 30 * time.Second
	best := time.Duration(0)
	for _, s := range c.Schedules {
		if !s.Enabled {
			continue
		}
		d := time.Duration(s.IntervalSeconds) * time.Second
		if d <= 0 {
			continue
		}
		if best == 0 || d < best {
			best = d
		}
	}
	if best == 0 || best > defaultInterval {
		return defaultInterval
	}
	return best
}

// Scheduler drives the tick loop.
type Scheduler struct {
	store        SessionStore
	orchestrator CaptureOrchestrator
	queue        JobEnqueuer
	logger       zerolog.Logger
	cfg          Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// lastBurst gates capture dispatch to each schedule's own interval
	// even though the tick loop itself runs at the fastest schedule's
	// cadence.
	lastBurst   map[string]time.Time
	lastBurstMu sync.Mutex

	// fired deduplicates window-end handling per (schedule, profile, date): once a
	// session's timelapse job enqueues successfully, its key is recorded
	// here so a later tick observing the same already-closed window is a
	// no-op. Enqueue failure leaves the key unset, so the next tick
	// retries.
	fired   map[string]bool
	firedMu sync.Mutex
}

// New builds a Scheduler. logger should already be configured with the
// process-wide fields (service name, etc.); New adds its own component
// field.
func New(store SessionStore, orchestrator CaptureOrchestrator, queue JobEnqueuer, logger zerolog.Logger, cfg Config) *Scheduler {
	return &Scheduler{
		store:        store,
		orchestrator: orchestrator,
		queue:        queue,
		logger:       logger.With().Str("component", "scheduler").Logger(),
		cfg:          cfg,
		lastBurst:    make(map[string]time.Time),
		fired:        make(map[string]bool),
	}
}

// Start begins the tick loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	interval := s.cfg.TickInterval()
	s.logger.Info().Dur("tick_interval", interval).Int("schedules", len(s.cfg.Schedules)).Msg("starting scheduler")

	go s.run(ctx, interval)
	return nil
}

// Stop halts the tick loop and waits for the in-flight tick to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// IsRunning reports whether the tick loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration) {
	defer close(s.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick evaluates every enabled schedule once. A single schedule's failure
// is logged and never aborts the remaining schedules.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	tz, err := time.LoadLocation(s.cfg.Location.Timezone)
	if err != nil {
		s.logger.Error().Err(err).Str("timezone", s.cfg.Location.Timezone).Msg("invalid location timezone, skipping tick")
		return
	}
	localNow := now.In(tz)

	for _, schedule := range s.cfg.Schedules {
		if !schedule.Enabled {
			continue
		}
		s.tickSchedule(ctx, schedule, localNow)
	}
}

func (s *Scheduler) tickSchedule(ctx context.Context, schedule models.Schedule, localNow time.Time) {
	logger := s.logger.With().Str("schedule", schedule.Name).Logger()

	start, end, err := solar.Window(s.cfg.Location, schedule, localNow)
	if err != nil {
		logger.Error().Err(err).Msg("failed to compute schedule window")
		return
	}
	active := solar.Active(start, end, localNow)
	date := start.Format("20060102")

	for _, profileID := range schedule.Profiles {
		profile, ok := s.cfg.Profiles[profileID]
		if !ok || !profile.Enabled {
			continue
		}
		s.tickProfile(ctx, profile, schedule, date, start, end, active, localNow)
	}
}

func (s *Scheduler) tickProfile(ctx context.Context, profile models.Profile, schedule models.Schedule, date string, start, end time.Time, active bool, now time.Time) {
	logger := s.logger.With().Str("schedule", schedule.Name).Str("profile", profile.ID).Logger()

	session, err := s.store.GetOrCreateSession(ctx, profile.ID, schedule.Name, date, start)
	if err != nil {
		logger.Error().Err(err).Msg("get_or_create_session failed")
		return
	}

	wasActive, err := s.store.GetWasActive(ctx, session.ID)
	if err != nil {
		logger.Error().Err(err).Msg("get_was_active failed")
		return
	}

	if active {
		s.maybeDispatchBurst(ctx, profile, schedule, session.ID, now, logger)
	} else if wasActive {
		s.handleWindowEnd(ctx, profile, schedule, session.ID, date, end, logger)
	}

	if err := s.store.UpdateWasActive(ctx, session.ID, active); err != nil {
		logger.Error().Err(err).Msg("update_was_active failed")
	}
}

func (s *Scheduler) maybeDispatchBurst(ctx context.Context, profile models.Profile, schedule models.Schedule, sessionID string, now time.Time, logger zerolog.Logger) {
	key := schedule.Name + "/" + profile.ID
	interval := time.Duration(schedule.IntervalSeconds) * time.Second

	s.lastBurstMu.Lock()
	last, fired := s.lastBurst[key]
	due := !fired || now.Sub(last) >= interval
	if due {
		s.lastBurst[key] = now
	}
	s.lastBurstMu.Unlock()

	if !due {
		return
	}

	if err := s.orchestrator.RunBurst(ctx, profile, schedule, sessionID); err != nil {
		if skyerr.Is(err, skyerr.KindAdapterUnavailable) {
			logger.Warn().Err(err).Msg("camera adapter unavailable, skipping this burst")
			return
		}
		logger.Error().Err(err).Msg("capture burst failed")
	}
}

func (s *Scheduler) handleWindowEnd(ctx context.Context, profile models.Profile, schedule models.Schedule, sessionID, date string, end time.Time, logger zerolog.Logger) {
	key := fmt.Sprintf("%s/%s/%s", schedule.Name, profile.ID, date)

	s.firedMu.Lock()
	already := s.fired[key]
	s.firedMu.Unlock()
	if already {
		return
	}

	if err := s.store.MarkSessionComplete(ctx, sessionID, end); err != nil {
		logger.Error().Err(err).Msg("mark_session_complete failed")
		return
	}

	job := models.TimelapseJob{
		ProfileID:    profile.ID,
		ScheduleName: schedule.Name,
		Date:         date,
		SessionID:    sessionID,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		logger.Error().Err(err).Msg("enqueue timelapse job failed, will retry next tick")
		return
	}

	s.firedMu.Lock()
	s.fired[key] = true
	s.firedMu.Unlock()
	logger.Info().Str("session_id", sessionID).Msg("window closed, timelapse job enqueued")
}
