// Package scheduler runs the daily analysis pipeline at a fixed local
// time, matching the cron-style "every day at HH:MM" deployment mode.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"stock-decision-bot/internal/events"

	"github.com/rs/zerolog"
)

// RunFunc is the pipeline invoked on every scheduled fire.
type RunFunc func(ctx context.Context)

// Scheduler fires a run function once per day at a configured HH:MM.
type Scheduler struct {
	at     string
	run    RunFunc
	bus    *events.EventBus
	logger zerolog.Logger
}

// New validates the HH:MM trigger time and builds a scheduler.
func New(at string, run RunFunc, bus *events.EventBus, logger zerolog.Logger) (*Scheduler, error) {
	if _, err := time.Parse("15:04", at); err != nil {
		return nil, fmt.Errorf("invalid schedule time %q, want HH:MM: %w", at, err)
	}
	return &Scheduler{
		at:     at,
		run:    run,
		bus:    bus,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Start launches the schedule loop. It returns immediately; the loop
// stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		next := s.NextFire(time.Now())
		timer := time.NewTimer(time.Until(next))

		s.logger.Info().
			Str("at", s.at).
			Time("next_run", next).
			Msg("scheduler armed")

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("scheduler stopped")
			return
		case fired := <-timer.C:
			s.logger.Info().Msg("scheduled run starting")
			if s.bus != nil {
				s.bus.PublishSchedulerFired(fired)
			}
			s.run(ctx)
		}
	}
}

// NextFire returns the next trigger after now: today at the configured
// time, or tomorrow if that moment already passed.
func (s *Scheduler) NextFire(now time.Time) time.Time {
	at, _ := time.Parse("15:04", s.at)
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
