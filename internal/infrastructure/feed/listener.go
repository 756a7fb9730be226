// Package feed delivers row-level change notifications from Postgres via
// LISTEN/NOTIFY. The notify triggers installed by the migrations publish a
// JSON payload per write; this package turns one channel into a stream of
// decoded Change values.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/skillmint/regsync/pkg/logger"
	"go.uber.org/zap"
)

// ErrUnsupported means the store has no change-feed capability; the watcher
// degrades to a one-time priming pass.
var ErrUnsupported = errors.New("feed: change feed not supported")

// Change is one decoded notification. Course carries the pre-image event
// name on delete; Changed lists the columns an update actually touched.
type Change struct {
	Op      string    `json:"op"`
	ID      uuid.UUID `json:"id"`
	Course  string    `json:"course"`
	Changed []string  `json:"changed"`
}

const (
	minReconnectInterval = 2 * time.Second
	maxReconnectInterval = time.Minute
	keepaliveInterval    = 90 * time.Second
)

// Listener owns one LISTEN subscription. Open may be called again after the
// delivered channel closes; each call builds a fresh underlying connection.
type Listener struct {
	dsn     string
	channel string
	logger  *logger.Logger

	mu      sync.Mutex
	lastErr error
}

func NewListener(dsn, channel string, log *logger.Logger) *Listener {
	return &Listener{
		dsn:     dsn,
		channel: channel,
		logger:  log,
	}
}

// Err returns the transport error that closed the last Open stream, if any.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *Listener) setErr(err error) {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
}

// Open subscribes to the channel and streams decoded changes until the
// transport fails or ctx is cancelled, then closes the returned channel.
// The caller owns restart policy.
func (l *Listener) Open(ctx context.Context) (<-chan Change, error) {
	if l.dsn == "" {
		return nil, ErrUnsupported
	}

	l.setErr(nil)

	transportErr := make(chan error, 1)
	pl := pq.NewListener(l.dsn, minReconnectInterval, maxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err == nil {
				return
			}
			select {
			case transportErr <- err:
			default:
			}
		})

	if err := pl.Listen(l.channel); err != nil {
		pl.Close()
		return nil, err
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		defer pl.Close()

		keepalive := time.NewTicker(keepaliveInterval)
		defer keepalive.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case err := <-transportErr:
				l.setErr(err)
				l.logger.Error("Change feed transport error",
					zap.String("channel", l.channel),
					zap.Error(err),
				)
				return

			case n := <-pl.Notify:
				if n == nil {
					// The driver dropped and re-established its
					// connection; notifications may have been lost in
					// between, so hand control back to the supervisor.
					l.setErr(errors.New("feed: connection reset"))
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(n.Extra), &c); err != nil {
					l.logger.Warn("Discarding malformed change payload",
						zap.String("channel", n.Channel),
						zap.Error(err),
					)
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}

			case <-keepalive.C:
				go func() {
					if err := pl.Ping(); err != nil {
						select {
						case transportErr <- err:
						default:
						}
					}
				}()
			}
		}
	}()

	return out, nil
}
