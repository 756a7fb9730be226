package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/skillmint/regsync/internal/domain/sheetsync"
	"github.com/skillmint/regsync/pkg/logger"
)

// Scheduler runs the nightly full resync that heals any drift the live
// watchers missed during the day.
type Scheduler struct {
	syncService *sheetsync.Service
	hour        int
	location    *time.Location
	logger      *logger.Logger
}

func NewScheduler(syncService *sheetsync.Service, hour int, loc *time.Location, logger *logger.Logger) *Scheduler {
	if hour < 0 || hour > 23 {
		hour = 3
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		syncService: syncService,
		hour:        hour,
		location:    loc,
		logger:      logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	now := time.Now().In(s.location)
	nextRun := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, s.location)
	if !nextRun.After(now) {
		nextRun = nextRun.Add(24 * time.Hour)
	}

	s.logger.Info("Nightly resync scheduler initialized",
		zap.Time("next_run", nextRun),
		zap.Duration("time_until_next_run", nextRun.Sub(now)),
	)

	go func() {
		timer := time.NewTimer(nextRun.Sub(now))
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
		s.runFullResync(ctx)

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runFullResync(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Scheduler) runFullResync(ctx context.Context) {
	startTime := time.Now()
	s.logger.Info("Starting nightly full resync", zap.Time("start_time", startTime))

	report, err := s.syncService.ResyncAll(ctx)
	if err != nil {
		if errors.Is(err, sheetsync.ErrResyncInFlight) {
			s.logger.Warn("Skipping nightly resync, another resync is already running")
			return
		}
		s.logger.Error("Nightly full resync failed", zap.Error(err))
		return
	}

	s.logger.Info("Completed nightly full resync",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("duration", time.Since(startTime)),
	)
}
