// Package sheetsync mirrors event registrations into per-event external
// sinks: an idempotent tabular sheet holding current state and an
// append-only narrative document holding full history.
package sheetsync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skillmint/regsync/internal/domain/event"
	"github.com/skillmint/regsync/internal/domain/registration"
	"github.com/skillmint/regsync/internal/infrastructure/cache"
	"github.com/skillmint/regsync/internal/infrastructure/sheets"
	"github.com/skillmint/regsync/pkg/logger"
	"go.uber.org/zap"
)

// RegistrationStore is the slice of the registration repository this
// subsystem reads and the one field it writes back.
type RegistrationStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*registration.EventRegistration, error)
	FindByCourse(ctx context.Context, course string) ([]registration.EventRegistration, error)
	DistinctCourses(ctx context.Context) ([]string, error)
	UpdateRowIndex(ctx context.Context, id uuid.UUID, rowIndex int64) error
	BulkUpdateRowIndexes(ctx context.Context, indexes map[uuid.UUID]int64) error
}

// EventStore provides read-only event access for metadata projection.
type EventStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*event.Event, error)
	FindByTitle(ctx context.Context, title string) (*event.Event, error)
	ListTitles(ctx context.Context) ([]string, error)
}

// SinkResolver locates or creates the sink pair for an event name.
type SinkResolver interface {
	Resolve(ctx context.Context, eventName string, metaRows [][]interface{}) (*sheets.Mapping, error)
}

// SinkWriter performs the individual external writes. Implementations wrap
// every call in the retry envelope.
type SinkWriter interface {
	UpdateRow(ctx context.Context, m *sheets.Mapping, row int64, values []interface{}) error
	AppendRow(ctx context.Context, m *sheets.Mapping, values []interface{}) (int64, error)
	ClearDataRows(ctx context.Context, m *sheets.Mapping) error
	WriteRows(ctx context.Context, m *sheets.Mapping, startRow int64, rows [][]interface{}) error
	WriteMetadata(ctx context.Context, m *sheets.Mapping, rows [][]interface{}) error
	AppendLog(ctx context.Context, m *sheets.Mapping, text string) error
}

// Config carries the sync-tunables the service needs.
type Config struct {
	Enabled          bool
	Location         *time.Location
	ResyncEventDelay time.Duration
}

// Service implements registration-to-sink synchronization. All entry
// points degrade to logged no-ops when sink credentials are absent.
type Service struct {
	regs     RegistrationStore
	events   EventStore
	resolver SinkResolver
	writer   SinkWriter
	cache    *cache.RedisClient // optional; nil disables markers
	loc      *time.Location
	delay    time.Duration
	enabled  bool

	disabledOnce sync.Once
	logger       *logger.Logger
}

func NewService(
	regs RegistrationStore,
	events EventStore,
	resolver SinkResolver,
	writer SinkWriter,
	redis *cache.RedisClient,
	cfg Config,
	log *logger.Logger,
) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	delay := cfg.ResyncEventDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Service{
		regs:     regs,
		events:   events,
		resolver: resolver,
		writer:   writer,
		cache:    redis,
		loc:      loc,
		delay:    delay,
		enabled:  cfg.Enabled && resolver != nil && writer != nil,
		logger:   log,
	}
}

// Enabled reports whether sink credentials were configured.
func (s *Service) Enabled() bool {
	return s.enabled
}

func (s *Service) skipDisabled() bool {
	if s.enabled {
		return false
	}
	s.disabledOnce.Do(func() {
		s.logger.Warn("Sheet sync disabled: no sink credentials configured, all sync operations are no-ops")
	})
	return true
}

// SyncRegistration mirrors one registration into its event's sheet and log
// document. A stored row pointer makes the sheet write an in-place update;
// otherwise the row is appended and the recovered position persisted back
// onto the registration. Returns false when sync is disabled.
func (s *Service) SyncRegistration(ctx context.Context, reg *registration.EventRegistration) (bool, error) {
	if s.skipDisabled() {
		return false, nil
	}

	m, err := s.resolver.Resolve(ctx, reg.Course, s.metaRowsFor(ctx, reg.Course))
	if err != nil {
		syncFailures.WithLabelValues("resolve").Inc()
		return false, err
	}

	mode := ModeNew
	if reg.SheetRowIndex != nil {
		mode = ModeUpdated
		if err := s.writer.UpdateRow(ctx, m, *reg.SheetRowIndex, ProjectRow(reg, s.loc)); err != nil {
			syncFailures.WithLabelValues("update_row").Inc()
			return false, err
		}
		rowsSynced.WithLabelValues("update").Inc()
	} else {
		row, err := s.writer.AppendRow(ctx, m, ProjectRow(reg, s.loc))
		if err != nil {
			syncFailures.WithLabelValues("append_row").Inc()
			return false, err
		}
		rowsSynced.WithLabelValues("append").Inc()

		reg.SheetRowIndex = &row
		if err := s.regs.UpdateRowIndex(ctx, reg.ID, row); err != nil {
			// The sheet write already landed; a lost pointer only costs
			// one duplicate-row risk until the next resync heals it.
			s.logger.Error("Failed to persist sheet row pointer",
				zap.String("registration", reg.ID.String()),
				zap.Int64("row", row),
				zap.Error(err),
			)
		}
	}

	// The narrative log is best-effort; the sheet is the primary sink.
	if err := s.writer.AppendLog(ctx, m, ProjectLogBlock(reg, mode, time.Now())); err != nil {
		syncFailures.WithLabelValues("append_log").Inc()
		s.logger.Warn("Failed to append to log document",
			zap.String("registration", reg.ID.String()),
			zap.Error(err),
		)
	}

	return true, nil
}

// SyncRegistrationByID loads and syncs one registration, used by the
// change-feed watcher.
func (s *Service) SyncRegistrationByID(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.skipDisabled() {
		return false, nil
	}
	reg, err := s.regs.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return s.SyncRegistration(ctx, reg)
}

// EnsureSink makes sure the event's sink pair exists and refreshes its
// metadata tab. The refresh is best-effort.
func (s *Service) EnsureSink(ctx context.Context, ev *event.Event) error {
	if s.skipDisabled() {
		return nil
	}

	rows := ProjectEventMetadata(ev)
	m, err := s.resolver.Resolve(ctx, ev.Title, rows)
	if err != nil {
		syncFailures.WithLabelValues("resolve").Inc()
		return err
	}

	if err := s.writer.WriteMetadata(ctx, m, rows); err != nil {
		syncFailures.WithLabelValues("write_metadata").Inc()
		s.logger.Warn("Failed to refresh metadata tab",
			zap.String("event", ev.Title),
			zap.Error(err),
		)
	}
	return nil
}

// EnsureSinkByID is the watcher-facing variant of EnsureSink.
func (s *Service) EnsureSinkByID(ctx context.Context, id uuid.UUID) error {
	if s.skipDisabled() {
		return nil
	}
	ev, err := s.events.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.EnsureSink(ctx, ev)
}

// metaRowsFor builds metadata rows for an event name when the event record
// exists; registrations against free-text course names without a matching
// event still sync, just without a metadata tab.
func (s *Service) metaRowsFor(ctx context.Context, course string) [][]interface{} {
	ev, err := s.events.FindByTitle(ctx, course)
	if err != nil {
		return nil
	}
	return ProjectEventMetadata(ev)
}
