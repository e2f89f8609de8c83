package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ShiftScheduler rolls the pipeline over to a new shift on a cron schedule.
type ShiftScheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	pipeline *Pipeline
	logger   *slog.Logger
	cancel   context.CancelFunc
	schedule string
	entry    cron.EntryID
	started  bool
}

// NewShiftScheduler validates the schedule (standard five-field cron syntax) and prepares a scheduler.
func NewShiftScheduler(pipeline *Pipeline, schedule string, logger *slog.Logger) (*ShiftScheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid rollover schedule '%s': %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ShiftScheduler{
		cron:     cron.New(),
		pipeline: pipeline,
		logger:   logger,
		schedule: schedule,
	}, nil
}

// Start begins running rollovers. Calling Start twice is a no-op.
func (s *ShiftScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	entry, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.pipeline.Rollover(ctx); err != nil {
			s.logger.Error("Scheduled shift rollover failed", "error", err)
		}
	})
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to schedule rollover: %w", err)
	}
	s.entry = entry

	s.cron.Start()
	s.started = true
	s.logger.Info("Shift rollover scheduled", "schedule", s.schedule, "next", s.Next())
	return nil
}

// Next returns the next scheduled rollover, or the zero time when not started.
func (s *ShiftScheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Stop halts the schedule and waits for a running rollover to finish.
func (s *ShiftScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.cancel()
	s.cron.Remove(s.entry)
	s.started = false
}
