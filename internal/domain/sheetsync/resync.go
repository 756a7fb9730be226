package sheetsync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrResyncInFlight is returned when a full resync is requested while a
// previous one still holds the in-flight marker.
var ErrResyncInFlight = errors.New("sheetsync: a full resync is already running")

const (
	resyncMarkerKey = "resync:inflight"
	resyncLastKey   = "resync:last_run"
	resyncMarkerTTL = 30 * time.Minute
)

// Report aggregates the outcome of a multi-event resync. Individual
// failures never abort the pass; they are collected here instead.
type Report struct {
	Skipped   bool     `json:"skipped"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    []string `json:"failed,omitempty"`
}

// OK reports whether the whole pass completed without failures.
func (r *Report) OK() bool {
	return !r.Skipped && len(r.Failed) == 0
}

// ResyncEvent rebuilds the event's data tab from scratch: clears every row
// below the header, rewrites all registrations in one batched write in
// creation order, and persists the recomputed row pointers (index+2, row 1
// being the header) in one bulk update.
func (s *Service) ResyncEvent(ctx context.Context, eventName string) (bool, error) {
	if s.skipDisabled() {
		return false, nil
	}

	regs, err := s.regs.FindByCourse(ctx, eventName)
	if err != nil {
		return false, err
	}

	m, err := s.resolver.Resolve(ctx, eventName, s.metaRowsFor(ctx, eventName))
	if err != nil {
		syncFailures.WithLabelValues("resolve").Inc()
		resyncRuns.WithLabelValues("failure").Inc()
		return false, err
	}

	if err := s.writer.ClearDataRows(ctx, m); err != nil {
		syncFailures.WithLabelValues("clear_rows").Inc()
		resyncRuns.WithLabelValues("failure").Inc()
		return false, err
	}

	rows := make([][]interface{}, len(regs))
	indexes := make(map[uuid.UUID]int64, len(regs))
	for i := range regs {
		rows[i] = ProjectRow(&regs[i], s.loc)
		indexes[regs[i].ID] = int64(i + 2)
	}

	if len(rows) > 0 {
		if err := s.writer.WriteRows(ctx, m, 2, rows); err != nil {
			syncFailures.WithLabelValues("write_rows").Inc()
			resyncRuns.WithLabelValues("failure").Inc()
			return false, err
		}
		if err := s.regs.BulkUpdateRowIndexes(ctx, indexes); err != nil {
			resyncRuns.WithLabelValues("failure").Inc()
			return false, err
		}
	}

	resyncRuns.WithLabelValues("success").Inc()
	s.logger.Info("Rebuilt event sheet",
		zap.String("event", eventName),
		zap.Int("rows", len(regs)),
	)
	return true, nil
}

// ResyncAll resyncs every known event: the union of event titles and the
// distinct course names actually present on registrations, which also
// covers orphaned or renamed events. Events are processed sequentially
// with an inter-event delay to respect sink rate limits, and per-event
// failures never abort the pass.
func (s *Service) ResyncAll(ctx context.Context) (*Report, error) {
	if s.skipDisabled() {
		return &Report{Skipped: true}, nil
	}

	if !s.acquireResyncMarker(ctx) {
		return nil, ErrResyncInFlight
	}
	defer s.releaseResyncMarker(ctx)

	names, err := s.allEventNames(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Total: len(names)}
	for i, name := range names {
		ok, err := s.ResyncEvent(ctx, name)
		if err != nil || !ok {
			report.Failed = append(report.Failed, name)
			s.logger.Error("Event resync failed, continuing with remaining events",
				zap.String("event", name),
				zap.Error(err),
			)
		} else {
			report.Succeeded++
		}

		if i < len(names)-1 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return report, ctx.Err()
			}
		}
	}

	s.recordLastResync(ctx)
	s.logger.Info("Completed full resync",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// Prime is the degraded mode for stores without a change feed: one pass
// over every known event at boot, no watching afterwards.
func (s *Service) Prime(ctx context.Context) {
	if s.skipDisabled() {
		return
	}
	s.logger.Info("Change feed unavailable, running one-time priming pass")
	if _, err := s.ResyncAll(ctx); err != nil && !errors.Is(err, ErrResyncInFlight) {
		s.logger.Error("Priming pass failed", zap.Error(err))
	}
}

func (s *Service) allEventNames(ctx context.Context) ([]string, error) {
	titles, err := s.events.ListTitles(ctx)
	if err != nil {
		return nil, err
	}
	courses, err := s.regs.DistinctCourses(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(titles)+len(courses))
	names := make([]string, 0, len(titles)+len(courses))
	for _, n := range append(titles, courses...) {
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	return names, nil
}

// Resync markers live in Redis so the status endpoint can report an
// in-flight pass; without Redis they silently degrade to always-acquired.
func (s *Service) acquireResyncMarker(ctx context.Context) bool {
	if s.cache == nil {
		return true
	}
	ok, err := s.cache.AcquireMarker(ctx, resyncMarkerKey, time.Now().UTC().Format(time.RFC3339), resyncMarkerTTL)
	if err != nil {
		s.logger.Warn("Could not acquire resync marker, proceeding anyway", zap.Error(err))
		return true
	}
	return ok
}

func (s *Service) releaseResyncMarker(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.ReleaseMarker(ctx, resyncMarkerKey); err != nil {
		s.logger.Warn("Could not release resync marker", zap.Error(err))
	}
}

func (s *Service) recordLastResync(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, resyncLastKey, time.Now().UTC().Format(time.RFC3339), 0); err != nil {
		s.logger.Warn("Could not record last resync time", zap.Error(err))
	}
}

// LastResync returns the recorded completion time of the last full resync,
// or "" when unknown.
func (s *Service) LastResync(ctx context.Context) string {
	if s.cache == nil {
		return ""
	}
	v, err := s.cache.Get(ctx, resyncLastKey)
	if err != nil {
		return ""
	}
	return v
}

// ResyncRunning reports whether the in-flight marker is currently held.
func (s *Service) ResyncRunning(ctx context.Context) bool {
	if s.cache == nil {
		return false
	}
	_, err := s.cache.Get(ctx, resyncMarkerKey)
	return err == nil
}
