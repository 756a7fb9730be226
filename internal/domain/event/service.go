package event

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	CreateEvent(ctx context.Context, input CreateEventInput) (*Event, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, input UpdateEventInput) (*Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	GetEventByTitle(ctx context.Context, title string) (*Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	ListTitles(ctx context.Context) ([]string, error)
}

type CreateEventInput struct {
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Description  string     `json:"description"`
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	Timezone     string     `json:"timezone"`
	HostName     string     `json:"host_name"`
	JoinURL      string     `json:"join_url"`
	Price        float64    `json:"price"`
	Currency     string     `json:"currency"`
	CallToAction string     `json:"call_to_action"`
	Tags         []string   `json:"tags"`
	Highlights   []string   `json:"highlights"`
	Agenda       []string   `json:"agenda"`
}

type UpdateEventInput struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Timezone     *string    `json:"timezone,omitempty"`
	HostName     *string    `json:"host_name,omitempty"`
	JoinURL      *string    `json:"join_url,omitempty"`
	Price        *float64   `json:"price,omitempty"`
	Currency     *string    `json:"currency,omitempty"`
	CallToAction *string    `json:"call_to_action,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Highlights   []string   `json:"highlights,omitempty"`
	Agenda       []string   `json:"agenda,omitempty"`
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{repo: repo, logger: logger}
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the URL slug from a title when none is supplied.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugCleaner.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func (s *service) CreateEvent(ctx context.Context, input CreateEventInput) (*Event, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrInvalidInput
	}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = Slugify(title)
	}

	if _, err := s.repo.FindByTitle(ctx, title); err == nil {
		return nil, ErrDuplicateTitle
	}
	if _, err := s.repo.FindBySlug(ctx, slug); err == nil {
		return nil, ErrDuplicateSlug
	}

	ev := &Event{
		ID:           uuid.New(),
		Title:        title,
		Slug:         slug,
		Description:  input.Description,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		Timezone:     input.Timezone,
		HostName:     input.HostName,
		JoinURL:      input.JoinURL,
		Price:        input.Price,
		Currency:     input.Currency,
		CallToAction: input.CallToAction,
		Tags:         input.Tags,
		Highlights:   input.Highlights,
		Agenda:       input.Agenda,
	}

	if err := s.repo.Create(ctx, ev); err != nil {
		s.logger.Error("Failed to create event", zap.String("title", title), zap.Error(err))
		return nil, err
	}
	return ev, nil
}

func (s *service) UpdateEvent(ctx context.Context, id uuid.UUID, input UpdateEventInput) (*Event, error) {
	ev, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrInvalidInput
		}
		if title != ev.Title {
			if existing, err := s.repo.FindByTitle(ctx, title); err == nil && existing.ID != ev.ID {
				return nil, ErrDuplicateTitle
			}
		}
		ev.Title = title
	}
	if input.Description != nil {
		ev.Description = *input.Description
	}
	if input.StartTime != nil {
		ev.StartTime = input.StartTime
	}
	if input.EndTime != nil {
		ev.EndTime = input.EndTime
	}
	if input.Timezone != nil {
		ev.Timezone = *input.Timezone
	}
	if input.HostName != nil {
		ev.HostName = *input.HostName
	}
	if input.JoinURL != nil {
		ev.JoinURL = *input.JoinURL
	}
	if input.Price != nil {
		ev.Price = *input.Price
	}
	if input.Currency != nil {
		ev.Currency = *input.Currency
	}
	if input.CallToAction != nil {
		ev.CallToAction = *input.CallToAction
	}
	if input.Tags != nil {
		ev.Tags = input.Tags
	}
	if input.Highlights != nil {
		ev.Highlights = input.Highlights
	}
	if input.Agenda != nil {
		ev.Agenda = input.Agenda
	}

	if err := s.repo.Update(ctx, ev); err != nil {
		s.logger.Error("Failed to update event", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}
	return ev, nil
}

func (s *service) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *service) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetEventByTitle(ctx context.Context, title string) (*Event, error) {
	return s.repo.FindByTitle(ctx, title)
}

func (s *service) ListEvents(ctx context.Context) ([]Event, error) {
	return s.repo.FindAll(ctx)
}

func (s *service) ListTitles(ctx context.Context) ([]string, error) {
	return s.repo.ListTitles(ctx)
}
