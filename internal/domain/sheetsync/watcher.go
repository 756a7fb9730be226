package sheetsync

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/skillmint/regsync/internal/infrastructure/feed"
	"github.com/skillmint/regsync/pkg/logger"
	"go.uber.org/zap"
)

// WatchState is the lifecycle phase of a change-feed watcher.
type WatchState int32

const (
	StateStopped WatchState = iota
	StateStarting
	StateWatching
	StateError
	StateClosed
)

func (s WatchState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateWatching:
		return "watching"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Feed is the subscription a watcher supervises. The delivered channel
// closing signals a transport failure; Err explains it.
type Feed interface {
	Open(ctx context.Context) (<-chan feed.Change, error)
	Err() error
}

// WatcherConfig carries the two restart delays: the short one for ordinary
// stream failures and the long one for network-level outages, where an
// immediate reconnect would just fail again.
type WatcherConfig struct {
	RestartDelay    time.Duration
	NetRestartDelay time.Duration
}

// Watcher supervises one change feed, dispatching decoded changes to a
// handler and restarting the stream after transport failures. It never
// gives up while the context lives.
type Watcher struct {
	name    string
	feed    Feed
	handle  func(ctx context.Context, c feed.Change)
	onPrime func(ctx context.Context)

	restartDelay    time.Duration
	netRestartDelay time.Duration

	state  atomic.Int32
	logger *logger.Logger
}

func newWatcher(name string, f Feed, cfg WatcherConfig, log *logger.Logger) *Watcher {
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = 5 * time.Second
	}
	if cfg.NetRestartDelay <= 0 {
		cfg.NetRestartDelay = 30 * time.Second
	}
	return &Watcher{
		name:            name,
		feed:            f,
		restartDelay:    cfg.RestartDelay,
		netRestartDelay: cfg.NetRestartDelay,
		logger:          log,
	}
}

// NewRegistrationWatcher reacts to registration changes: inserts and
// relevant updates resync the single record, deletes rebuild the affected
// event's sheet from the pre-image course name.
func NewRegistrationWatcher(f Feed, svc *Service, cfg WatcherConfig, log *logger.Logger) *Watcher {
	w := newWatcher("registrations", f, cfg, log)
	w.handle = func(ctx context.Context, c feed.Change) {
		switch c.Op {
		case "insert", "update":
			if c.Op == "update" && selfInflicted(c.Changed) {
				return
			}
			if _, err := svc.SyncRegistrationByID(ctx, c.ID); err != nil {
				log.Error("Registration sync from change feed failed",
					zap.String("registration", c.ID.String()),
					zap.Error(err),
				)
			}
		case "delete":
			if c.Course != "" {
				_, err := svc.ResyncEvent(ctx, c.Course)
				if err == nil {
					return
				}
				log.Error("Event resync after delete failed, falling back to full resync",
					zap.String("event", c.Course),
					zap.Error(err),
				)
			}
			if _, err := svc.ResyncAll(ctx); err != nil && !errors.Is(err, ErrResyncInFlight) {
				log.Error("Full resync after delete failed", zap.Error(err))
			}
		}
	}
	w.onPrime = svc.Prime
	return w
}

// NewEventWatcher keeps sink metadata current: any event insert or update
// re-ensures the sink pair and refreshes its metadata tab.
func NewEventWatcher(f Feed, svc *Service, cfg WatcherConfig, log *logger.Logger) *Watcher {
	w := newWatcher("events", f, cfg, log)
	w.handle = func(ctx context.Context, c feed.Change) {
		switch c.Op {
		case "insert", "update":
			if err := svc.EnsureSinkByID(ctx, c.ID); err != nil {
				log.Error("Sink refresh from event change failed",
					zap.String("event", c.ID.String()),
					zap.Error(err),
				)
			}
		}
	}
	return w
}

// State returns the watcher's current lifecycle phase.
func (w *Watcher) State() WatchState {
	return WatchState(w.state.Load())
}

// Active reports whether live change propagation is in effect. Callers use
// this to decide whether a write needs a manual follow-up sync.
func (w *Watcher) Active() bool {
	return w.State() == StateWatching
}

// Run supervises the feed until the context is cancelled. When the store
// reports no feed support, the watcher runs the one-time priming pass and
// stops instead of spinning on reconnects.
func (w *Watcher) Run(ctx context.Context) {
	for {
		w.state.Store(int32(StateStarting))

		stream, err := w.feed.Open(ctx)
		if err != nil {
			if errors.Is(err, feed.ErrUnsupported) {
				w.logger.Warn("Change feed unsupported, watcher will not run",
					zap.String("watcher", w.name),
				)
				if w.onPrime != nil {
					w.onPrime(ctx)
				}
				w.state.Store(int32(StateStopped))
				return
			}
			w.state.Store(int32(StateError))
			if !w.waitRestart(ctx, err) {
				w.state.Store(int32(StateClosed))
				return
			}
			continue
		}

		w.state.Store(int32(StateWatching))
		w.logger.Info("Change feed watcher started", zap.String("watcher", w.name))

		w.consume(ctx, stream)
		if ctx.Err() != nil {
			w.state.Store(int32(StateClosed))
			return
		}

		w.state.Store(int32(StateError))
		if !w.waitRestart(ctx, w.feed.Err()) {
			w.state.Store(int32(StateClosed))
			return
		}
	}
}

func (w *Watcher) consume(ctx context.Context, stream <-chan feed.Change) {
	for {
		select {
		case c, ok := <-stream:
			if !ok {
				return
			}
			w.handle(ctx, c)
		case <-ctx.Done():
			return
		}
	}
}

// waitRestart sleeps out the restart delay appropriate to the failure and
// reports false when the context ended first.
func (w *Watcher) waitRestart(ctx context.Context, cause error) bool {
	delay := w.restartDelay
	if isNetworkError(cause) {
		delay = w.netRestartDelay
	}
	watcherRestarts.WithLabelValues(w.name).Inc()
	w.logger.Warn("Change feed stream ended, restarting",
		zap.String("watcher", w.name),
		zap.Duration("delay", delay),
		zap.Error(cause),
	)
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

// selfInflicted reports whether an update only touched the columns the sync
// path itself writes, which would otherwise echo forever.
func selfInflicted(changed []string) bool {
	if len(changed) == 0 {
		return false
	}
	for _, col := range changed {
		switch col {
		case "sheet_row_index", "updated_at":
		default:
			return false
		}
	}
	return true
}

var networkPhrases = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
	"network is unreachable",
	"broken pipe",
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range networkPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
