package sheetsync

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillmint/regsync/internal/domain/event"
	"github.com/skillmint/regsync/internal/infrastructure/feed"
	"github.com/skillmint/regsync/pkg/logger"
)

type fakeFeed struct {
	mu      sync.Mutex
	openErr error
	streams []chan feed.Change
	lastErr error
}

func (f *fakeFeed) Open(_ context.Context) (<-chan feed.Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	ch := make(chan feed.Change, 8)
	f.streams = append(f.streams, ch)
	return ch, nil
}

func (f *fakeFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func TestSelfInflicted(t *testing.T) {
	tests := []struct {
		name    string
		changed []string
		want    bool
	}{
		{"empty means unknown, do not skip", nil, false},
		{"pointer only", []string{"sheet_row_index"}, true},
		{"pointer and timestamp", []string{"sheet_row_index", "updated_at"}, true},
		{"timestamp only", []string{"updated_at"}, true},
		{"real field", []string{"name"}, false},
		{"mixed", []string{"sheet_row_index", "email"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selfInflicted(tt.changed))
		})
	}
}

func TestIsNetworkError(t *testing.T) {
	assert.False(t, isNetworkError(nil))
	assert.False(t, isNetworkError(errors.New("duplicate key value")))
	assert.True(t, isNetworkError(errors.New("dial tcp 10.0.0.1:5432: connection refused")))
	assert.True(t, isNetworkError(errors.New("lookup db.internal: no such host")))
	assert.True(t, isNetworkError(&net.OpError{Op: "read", Err: errors.New("boom")}))
}

func TestWatchStateString(t *testing.T) {
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "watching", StateWatching.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", WatchState(99).String())
}

func TestWatcherUnsupportedFeedPrimesOnce(t *testing.T) {
	f := &fakeFeed{openErr: feed.ErrUnsupported}
	w := newWatcher("registrations", f, WatcherConfig{}, logger.NewLogger())

	primed := 0
	w.onPrime = func(context.Context) { primed++ }
	w.handle = func(context.Context, feed.Change) {}

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on unsupported feed")
	}
	assert.Equal(t, 1, primed)
	assert.False(t, w.Active())
	assert.Equal(t, StateStopped, w.State(),
		"a deliberately degraded watcher reports stopped, not closed")
}

func TestWatcherDispatchesAndRestarts(t *testing.T) {
	f := &fakeFeed{}
	w := newWatcher("registrations", f, WatcherConfig{
		RestartDelay:    5 * time.Millisecond,
		NetRestartDelay: 5 * time.Millisecond,
	}, logger.NewLogger())

	var mu sync.Mutex
	var seen []string
	w.handle = func(_ context.Context, c feed.Change) {
		mu.Lock()
		seen = append(seen, c.Op)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return w.Active() })

	f.mu.Lock()
	first := f.streams[0]
	f.mu.Unlock()
	first <- feed.Change{Op: "insert"}
	first <- feed.Change{Op: "update"}

	// Closing the stream simulates a transport drop; the supervisor must
	// reopen and keep dispatching.
	close(first)
	waitFor(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.streams) == 2
	})
	waitFor(t, func() bool { return w.Active() })

	f.mu.Lock()
	second := f.streams[1]
	f.mu.Unlock()
	second <- feed.Change{Op: "delete"}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	})
	mu.Lock()
	assert.Equal(t, []string{"insert", "update", "delete"}, seen)
	mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not exit on cancel")
	}
	assert.Equal(t, StateClosed, w.State())
}

func TestRegistrationWatcherSkipsSelfInflictedUpdates(t *testing.T) {
	reg := regAt("Asha", "AI Bootcamp", 0)
	store := newFakeRegStore(reg)
	writer := newFakeWriter()
	svc := newTestService(store, nil, newFakeResolver(), writer)

	w := NewRegistrationWatcher(&fakeFeed{}, svc, WatcherConfig{}, logger.NewLogger())

	w.handle(context.Background(), feed.Change{
		Op: "update", ID: reg.ID, Changed: []string{"sheet_row_index", "updated_at"},
	})
	assert.Equal(t, 0, writer.rowCount("sheet-AI Bootcamp"))

	w.handle(context.Background(), feed.Change{
		Op: "update", ID: reg.ID, Changed: []string{"name"},
	})
	assert.Equal(t, 1, writer.rowCount("sheet-AI Bootcamp"))
}

func TestRegistrationWatcherDeleteTriggersEventResync(t *testing.T) {
	survivor := regAt("Kept", "AI Bootcamp", 0)
	store := newFakeRegStore(survivor)
	writer := newFakeWriter()
	svc := newTestService(store, nil, newFakeResolver(), writer)

	w := NewRegistrationWatcher(&fakeFeed{}, svc, WatcherConfig{}, logger.NewLogger())
	w.handle(context.Background(), feed.Change{Op: "delete", Course: "AI Bootcamp"})

	grid := writer.rows["sheet-AI Bootcamp"]
	require.Len(t, grid, 1)
	assert.Equal(t, "Kept", grid[2][0])
}

func TestEventWatcherRefreshesSink(t *testing.T) {
	ev := &event.Event{ID: uuid.New(), Title: "AI Bootcamp", HostName: "Dr. Rao"}
	events := &fakeEventStore{byTitle: map[string]*event.Event{"AI Bootcamp": ev}}
	writer := newFakeWriter()
	svc := newTestService(newFakeRegStore(), events, newFakeResolver(), writer)

	w := NewEventWatcher(&fakeFeed{}, svc, WatcherConfig{}, logger.NewLogger())
	w.handle(context.Background(), feed.Change{Op: "update", ID: ev.ID})

	require.NotEmpty(t, writer.meta["sheet-AI Bootcamp"])
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition never met")
}
