package event

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	byID    map[uuid.UUID]*Event
	byTitle map[string]*Event
	bySlug  map[string]*Event
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byID:    map[uuid.UUID]*Event{},
		byTitle: map[string]*Event{},
		bySlug:  map[string]*Event{},
	}
}

func (r *fakeRepo) Create(_ context.Context, ev *Event) error {
	r.byID[ev.ID] = ev
	r.byTitle[ev.Title] = ev
	r.bySlug[ev.Slug] = ev
	return nil
}

func (r *fakeRepo) Update(_ context.Context, ev *Event) error {
	r.byID[ev.ID] = ev
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	ev, ok := r.byID[id]
	if !ok {
		return ErrEventNotFound
	}
	delete(r.byID, id)
	delete(r.byTitle, ev.Title)
	delete(r.bySlug, ev.Slug)
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*Event, error) {
	if ev, ok := r.byID[id]; ok {
		return ev, nil
	}
	return nil, ErrEventNotFound
}

func (r *fakeRepo) FindByTitle(_ context.Context, title string) (*Event, error) {
	if ev, ok := r.byTitle[title]; ok {
		return ev, nil
	}
	return nil, ErrEventNotFound
}

func (r *fakeRepo) FindBySlug(_ context.Context, slug string) (*Event, error) {
	if ev, ok := r.bySlug[slug]; ok {
		return ev, nil
	}
	return nil, ErrEventNotFound
}

func (r *fakeRepo) FindAll(context.Context) ([]Event, error) {
	var out []Event
	for _, ev := range r.byID {
		out = append(out, *ev)
	}
	return out, nil
}

func (r *fakeRepo) ListTitles(context.Context) ([]string, error) {
	var out []string
	for t := range r.byTitle {
		out = append(out, t)
	}
	return out, nil
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AI Bootcamp", "ai-bootcamp"},
		{"  Design & UX Week!  ", "design-ux-week"},
		{"already-a-slug", "already-a-slug"},
		{"Événement 2026", "v-nement-2026"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestCreateEventDerivesSlug(t *testing.T) {
	svc := NewService(newFakeRepo(), zap.NewNop())

	ev, err := svc.CreateEvent(context.Background(), CreateEventInput{Title: "AI Bootcamp"})
	require.NoError(t, err)
	assert.Equal(t, "ai-bootcamp", ev.Slug)
}

func TestCreateEventRejectsBlankTitle(t *testing.T) {
	svc := NewService(newFakeRepo(), zap.NewNop())
	_, err := svc.CreateEvent(context.Background(), CreateEventInput{Title: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateEventRejectsDuplicateTitleAndSlug(t *testing.T) {
	svc := NewService(newFakeRepo(), zap.NewNop())

	_, err := svc.CreateEvent(context.Background(), CreateEventInput{Title: "AI Bootcamp"})
	require.NoError(t, err)

	_, err = svc.CreateEvent(context.Background(), CreateEventInput{Title: "AI Bootcamp"})
	assert.ErrorIs(t, err, ErrDuplicateTitle)

	_, err = svc.CreateEvent(context.Background(), CreateEventInput{Title: "Other", Slug: "ai-bootcamp"})
	assert.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestUpdateEventPatchesOnlyProvidedFields(t *testing.T) {
	svc := NewService(newFakeRepo(), zap.NewNop())

	ev, err := svc.CreateEvent(context.Background(), CreateEventInput{
		Title:    "AI Bootcamp",
		HostName: "Dr. Rao",
		Price:    499,
	})
	require.NoError(t, err)

	host := "Prof. Iyer"
	updated, err := svc.UpdateEvent(context.Background(), ev.ID, UpdateEventInput{HostName: &host})
	require.NoError(t, err)
	assert.Equal(t, "Prof. Iyer", updated.HostName)
	assert.Equal(t, "AI Bootcamp", updated.Title)
	assert.Equal(t, 499.0, updated.Price)
}

func TestUpdateEventRejectsTitleCollision(t *testing.T) {
	svc := NewService(newFakeRepo(), zap.NewNop())

	_, err := svc.CreateEvent(context.Background(), CreateEventInput{Title: "AI Bootcamp"})
	require.NoError(t, err)
	other, err := svc.CreateEvent(context.Background(), CreateEventInput{Title: "Data Camp"})
	require.NoError(t, err)

	title := "AI Bootcamp"
	_, err = svc.UpdateEvent(context.Background(), other.ID, UpdateEventInput{Title: &title})
	assert.ErrorIs(t, err, ErrDuplicateTitle)
}
