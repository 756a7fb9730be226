package sheetsync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillmint/regsync/internal/domain/event"
	"github.com/skillmint/regsync/internal/domain/registration"
	"github.com/skillmint/regsync/internal/infrastructure/sheets"
	"github.com/skillmint/regsync/pkg/logger"
)

type fakeRegStore struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]*registration.EventRegistration
	pointers   map[uuid.UUID]int64
	bulkCalls  int
	pointerErr error
}

func newFakeRegStore(regs ...*registration.EventRegistration) *fakeRegStore {
	s := &fakeRegStore{
		byID:     make(map[uuid.UUID]*registration.EventRegistration),
		pointers: make(map[uuid.UUID]int64),
	}
	for _, r := range regs {
		s.byID[r.ID] = r
	}
	return s
}

func (s *fakeRegStore) FindByID(_ context.Context, id uuid.UUID) (*registration.EventRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, registration.ErrRegistrationNotFound
	}
	return r, nil
}

func (s *fakeRegStore) FindByCourse(_ context.Context, course string) ([]registration.EventRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []registration.EventRegistration
	for _, r := range s.byID {
		if r.Course == course {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeRegStore) DistinctCourses(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, r := range s.byID {
		if _, dup := seen[r.Course]; !dup {
			seen[r.Course] = struct{}{}
			out = append(out, r.Course)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeRegStore) UpdateRowIndex(_ context.Context, id uuid.UUID, rowIndex int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pointerErr != nil {
		return s.pointerErr
	}
	s.pointers[id] = rowIndex
	return nil
}

func (s *fakeRegStore) BulkUpdateRowIndexes(_ context.Context, indexes map[uuid.UUID]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkCalls++
	for id, row := range indexes {
		s.pointers[id] = row
	}
	return nil
}

type fakeEventStore struct {
	titles  []string
	byTitle map[string]*event.Event
}

func (s *fakeEventStore) FindByID(_ context.Context, id uuid.UUID) (*event.Event, error) {
	for _, ev := range s.byTitle {
		if ev.ID == id {
			return ev, nil
		}
	}
	return nil, event.ErrEventNotFound
}

func (s *fakeEventStore) FindByTitle(_ context.Context, title string) (*event.Event, error) {
	if ev, ok := s.byTitle[title]; ok {
		return ev, nil
	}
	return nil, event.ErrEventNotFound
}

func (s *fakeEventStore) ListTitles(_ context.Context) ([]string, error) {
	return s.titles, nil
}

type fakeResolver struct {
	mu       sync.Mutex
	calls    int
	failFor  map[string]error
	metaSeen map[string][][]interface{}
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{failFor: map[string]error{}, metaSeen: map[string][][]interface{}{}}
}

func (r *fakeResolver) Resolve(_ context.Context, eventName string, metaRows [][]interface{}) (*sheets.Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if err, ok := r.failFor[eventName]; ok {
		return nil, err
	}
	r.metaSeen[eventName] = metaRows
	return &sheets.Mapping{
		SpreadsheetID: "sheet-" + eventName,
		DocumentID:    "doc-" + eventName,
		DataTabName:   sheets.DataTabName,
		MetaTabName:   sheets.MetaTabName,
		DisplayName:   eventName,
	}, nil
}

// fakeWriter keeps a per-spreadsheet in-memory grid so tests can assert on
// the final sheet contents rather than on call sequences.
type fakeWriter struct {
	mu        sync.Mutex
	rows      map[string]map[int64][]interface{}
	logs      map[string][]string
	meta      map[string][][]interface{}
	nextRow   map[string]int64
	appendErr error
	logErr    error
	clearErr  error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		rows:    map[string]map[int64][]interface{}{},
		logs:    map[string][]string{},
		meta:    map[string][][]interface{}{},
		nextRow: map[string]int64{},
	}
}

func (w *fakeWriter) grid(id string) map[int64][]interface{} {
	if w.rows[id] == nil {
		w.rows[id] = map[int64][]interface{}{}
		w.nextRow[id] = 2
	}
	return w.rows[id]
}

func (w *fakeWriter) UpdateRow(_ context.Context, m *sheets.Mapping, row int64, values []interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.grid(m.SpreadsheetID)[row] = values
	return nil
}

func (w *fakeWriter) AppendRow(_ context.Context, m *sheets.Mapping, values []interface{}) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.appendErr != nil {
		return 0, w.appendErr
	}
	g := w.grid(m.SpreadsheetID)
	row := w.nextRow[m.SpreadsheetID]
	g[row] = values
	w.nextRow[m.SpreadsheetID] = row + 1
	return row, nil
}

func (w *fakeWriter) ClearDataRows(_ context.Context, m *sheets.Mapping) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.clearErr != nil {
		return w.clearErr
	}
	w.rows[m.SpreadsheetID] = map[int64][]interface{}{}
	w.nextRow[m.SpreadsheetID] = 2
	return nil
}

func (w *fakeWriter) WriteRows(_ context.Context, m *sheets.Mapping, startRow int64, rows [][]interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	g := w.grid(m.SpreadsheetID)
	for i, r := range rows {
		g[startRow+int64(i)] = r
	}
	w.nextRow[m.SpreadsheetID] = startRow + int64(len(rows))
	return nil
}

func (w *fakeWriter) WriteMetadata(_ context.Context, m *sheets.Mapping, rows [][]interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.meta[m.SpreadsheetID] = rows
	return nil
}

func (w *fakeWriter) AppendLog(_ context.Context, m *sheets.Mapping, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logErr != nil {
		return w.logErr
	}
	w.logs[m.DocumentID] = append(w.logs[m.DocumentID], text)
	return nil
}

func (w *fakeWriter) rowCount(id string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows[id])
}

func newTestService(regs *fakeRegStore, events *fakeEventStore, resolver *fakeResolver, writer *fakeWriter) *Service {
	if events == nil {
		events = &fakeEventStore{byTitle: map[string]*event.Event{}}
	}
	return NewService(regs, events, resolver, writer, nil, Config{
		Enabled:          true,
		Location:         time.UTC,
		ResyncEventDelay: time.Millisecond,
	}, logger.NewLogger())
}

func regAt(name, course string, minute int) *registration.EventRegistration {
	return &registration.EventRegistration{
		ID:        uuid.New(),
		Name:      name,
		Email:     fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Phone:     "+91" + uuid.NewString()[:10],
		Course:    course,
		CreatedAt: time.Date(2026, 5, 1, 10, minute, 0, 0, time.UTC),
	}
}

func TestSyncRegistrationAppendThenUpdateWritesOneRow(t *testing.T) {
	reg := regAt("Asha Verma", "AI Bootcamp", 0)
	store := newFakeRegStore(reg)
	resolver := newFakeResolver()
	writer := newFakeWriter()
	svc := newTestService(store, nil, resolver, writer)

	ok, err := svc.SyncRegistration(context.Background(), reg)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, reg.SheetRowIndex)
	assert.EqualValues(t, 2, *reg.SheetRowIndex)
	assert.EqualValues(t, 2, store.pointers[reg.ID])

	// A second sync with the pointer in place must update the same row,
	// not append a duplicate.
	reg.Name = "Asha V."
	ok, err = svc.SyncRegistration(context.Background(), reg)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 1, writer.rowCount("sheet-AI Bootcamp"))
	assert.Equal(t, "Asha V.", writer.rows["sheet-AI Bootcamp"][2][0])
	// Both syncs leave a narrative block; the log only ever grows.
	assert.Len(t, writer.logs["doc-AI Bootcamp"], 2)
}

func TestSyncRegistrationPointerPersistFailureIsNotFatal(t *testing.T) {
	reg := regAt("Ravi", "AI Bootcamp", 0)
	store := newFakeRegStore(reg)
	store.pointerErr = errors.New("db down")
	writer := newFakeWriter()
	svc := newTestService(store, nil, newFakeResolver(), writer)

	ok, err := svc.SyncRegistration(context.Background(), reg)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, writer.rowCount("sheet-AI Bootcamp"))
}

func TestSyncRegistrationLogFailureIsNotFatal(t *testing.T) {
	reg := regAt("Ravi", "AI Bootcamp", 0)
	writer := newFakeWriter()
	writer.logErr = errors.New("doc quota exceeded")
	svc := newTestService(newFakeRegStore(reg), nil, newFakeResolver(), writer)

	ok, err := svc.SyncRegistration(context.Background(), reg)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, writer.rowCount("sheet-AI Bootcamp"))
}

func TestSyncRegistrationResolveFailurePropagates(t *testing.T) {
	reg := regAt("Ravi", "AI Bootcamp", 0)
	resolver := newFakeResolver()
	resolver.failFor["AI Bootcamp"] = errors.New("drive unavailable")
	svc := newTestService(newFakeRegStore(reg), nil, resolver, newFakeWriter())

	ok, err := svc.SyncRegistration(context.Background(), reg)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSyncRegistrationByIDNotFound(t *testing.T) {
	svc := newTestService(newFakeRegStore(), nil, newFakeResolver(), newFakeWriter())
	_, err := svc.SyncRegistrationByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, registration.ErrRegistrationNotFound)
}

func TestResyncEventRebuildsRowsAndPointers(t *testing.T) {
	regs := []*registration.EventRegistration{
		regAt("First", "AI Bootcamp", 0),
		regAt("Second", "AI Bootcamp", 1),
		regAt("Third", "AI Bootcamp", 2),
		regAt("Other", "Data Camp", 3),
	}
	store := newFakeRegStore(regs...)
	writer := newFakeWriter()
	// Seed stale rows that the rebuild must wipe.
	writer.grid("sheet-AI Bootcamp")[2] = []interface{}{"stale"}
	writer.grid("sheet-AI Bootcamp")[3] = []interface{}{"stale"}
	writer.nextRow["sheet-AI Bootcamp"] = 9

	svc := newTestService(store, nil, newFakeResolver(), writer)
	ok, err := svc.ResyncEvent(context.Background(), "AI Bootcamp")
	require.NoError(t, err)
	require.True(t, ok)

	grid := writer.rows["sheet-AI Bootcamp"]
	require.Len(t, grid, 3)
	assert.Equal(t, "First", grid[2][0])
	assert.Equal(t, "Second", grid[3][0])
	assert.Equal(t, "Third", grid[4][0])

	// Pointers are persisted in one bulk write, row = position + header.
	assert.Equal(t, 1, store.bulkCalls)
	assert.EqualValues(t, 2, store.pointers[regs[0].ID])
	assert.EqualValues(t, 3, store.pointers[regs[1].ID])
	assert.EqualValues(t, 4, store.pointers[regs[2].ID])
	assert.NotContains(t, store.pointers, regs[3].ID)
}

func TestResyncAllContinuesPastFailures(t *testing.T) {
	store := newFakeRegStore(
		regAt("A1", "AI Bootcamp", 0),
		regAt("B1", "Broken Camp", 1),
		regAt("C1", "Cloud Camp", 2),
	)
	events := &fakeEventStore{
		titles:  []string{"AI Bootcamp", "Design Week"},
		byTitle: map[string]*event.Event{},
	}
	resolver := newFakeResolver()
	resolver.failFor["Broken Camp"] = errors.New("permission denied")
	writer := newFakeWriter()

	svc := newTestService(store, events, resolver, writer)
	report, err := svc.ResyncAll(context.Background())
	require.NoError(t, err)

	// Union of event titles and registration courses, duplicates removed.
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, []string{"Broken Camp"}, report.Failed)
	assert.False(t, report.OK())

	// The failure did not stop later events from rebuilding.
	assert.Equal(t, 1, writer.rowCount("sheet-Cloud Camp"))
}

func TestResyncAllCancelledContext(t *testing.T) {
	store := newFakeRegStore(
		regAt("A1", "AI Bootcamp", 0),
		regAt("B1", "Cloud Camp", 1),
	)
	svc := newTestService(store, nil, newFakeResolver(), newFakeWriter())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := svc.ResyncAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Less(t, report.Succeeded, report.Total)
}

func TestEnsureSinkWritesMetadata(t *testing.T) {
	ev := &event.Event{ID: uuid.New(), Title: "AI Bootcamp", HostName: "Dr. Rao"}
	events := &fakeEventStore{byTitle: map[string]*event.Event{"AI Bootcamp": ev}}
	writer := newFakeWriter()
	svc := newTestService(newFakeRegStore(), events, newFakeResolver(), writer)

	require.NoError(t, svc.EnsureSink(context.Background(), ev))
	rows := writer.meta["sheet-AI Bootcamp"]
	require.NotEmpty(t, rows)
	assert.Equal(t, []interface{}{"Field", "Value"}, rows[0])
}

func TestDisabledServiceIsNoOp(t *testing.T) {
	svc := NewService(newFakeRegStore(), &fakeEventStore{}, nil, nil, nil, Config{Enabled: false}, logger.NewLogger())

	assert.False(t, svc.Enabled())

	ok, err := svc.SyncRegistration(context.Background(), regAt("X", "Y", 0))
	assert.NoError(t, err)
	assert.False(t, ok)

	report, err := svc.ResyncAll(context.Background())
	assert.NoError(t, err)
	assert.True(t, report.Skipped)
}

func TestMetaRowsPassedToResolverOnlyWhenEventExists(t *testing.T) {
	ev := &event.Event{ID: uuid.New(), Title: "AI Bootcamp"}
	events := &fakeEventStore{byTitle: map[string]*event.Event{"AI Bootcamp": ev}}
	resolver := newFakeResolver()
	store := newFakeRegStore(
		regAt("Known", "AI Bootcamp", 0),
		regAt("Orphan", "Legacy Course", 1),
	)
	svc := newTestService(store, events, resolver, newFakeWriter())

	for _, r := range store.byID {
		_, err := svc.SyncRegistration(context.Background(), r)
		require.NoError(t, err)
	}

	assert.NotEmpty(t, resolver.metaSeen["AI Bootcamp"])
	assert.Nil(t, resolver.metaSeen["Legacy Course"])
}
