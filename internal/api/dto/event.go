package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/skillmint/regsync/internal/domain/event"
)

type CreateEventRequest struct {
	Title        string     `json:"title" binding:"required"`
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

type UpdateEventRequest struct {
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

type EventResponse struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Description  string     `json:"description,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Timezone     string     `json:"timezone,omitempty"`
	HostName     string     `json:"host_name,omitempty"`
	JoinURL      string     `json:"join_url,omitempty"`
	Price        float64    `json:"price"`
	Currency     string     `json:"currency,omitempty"`
	CallToAction string     `json:"call_to_action,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Highlights   []string   `json:"highlights,omitempty"`
	Agenda       []string   `json:"agenda,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func ToEventResponse(ev *event.Event) EventResponse {
	return EventResponse{
		ID:           ev.ID,
		Title:        ev.Title,
		Slug:         ev.Slug,
		Description:  ev.Description,
		StartTime:    ev.StartTime,
		EndTime:      ev.EndTime,
		Timezone:     ev.Timezone,
		HostName:     ev.HostName,
		JoinURL:      ev.JoinURL,
		Price:        ev.Price,
		Currency:     ev.Currency,
		CallToAction: ev.CallToAction,
		Tags:         ev.Tags,
		Highlights:   ev.Highlights,
		Agenda:       ev.Agenda,
		CreatedAt:    ev.CreatedAt,
		UpdatedAt:    ev.UpdatedAt,
	}
}
