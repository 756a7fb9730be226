package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/skillmint/regsync/internal/domain/registration"
)

// SubmitRegistrationRequest is the public registration payload.
type SubmitRegistrationRequest struct {
	Name          string                 `json:"name" binding:"required"`
	Email         string                 `json:"email" binding:"required,email"`
	Phone         string                 `json:"phone" binding:"required"`
	State         string                 `json:"state"`
	Qualification string                 `json:"qualification"`
	Course        string                 `json:"course" binding:"required"`
	Consent       bool                   `json:"consent"`
	EventDetails  map[string]interface{} `json:"event_details"`
}

// UpdateRegistrationRequest patches an existing registration; nil fields
// are left unchanged.
type UpdateRegistrationRequest struct {
	Name          *string                `json:"name,omitempty"`
	Email         *string                `json:"email,omitempty"`
	Phone         *string                `json:"phone,omitempty"`
	State         *string                `json:"state,omitempty"`
	Qualification *string                `json:"qualification,omitempty"`
	Course        *string                `json:"course,omitempty"`
	Consent       *bool                  `json:"consent,omitempty"`
	EventDetails  map[string]interface{} `json:"event_details,omitempty"`
}

type RegistrationResponse struct {
	ID            uuid.UUID              `json:"id"`
	Name          string                 `json:"name"`
	Email         string                 `json:"email"`
	Phone         string                 `json:"phone"`
	State         string                 `json:"state,omitempty"`
	Qualification string                 `json:"qualification,omitempty"`
	Course        string                 `json:"course"`
	Consent       bool                   `json:"consent"`
	EventDetails  map[string]interface{} `json:"event_details,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type RegistrationListResponse struct {
	Registrations []RegistrationResponse `json:"registrations"`
	Total         int64                  `json:"total"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
}

func ToRegistrationResponse(reg *registration.EventRegistration) RegistrationResponse {
	return RegistrationResponse{
		ID:            reg.ID,
		Name:          reg.Name,
		Email:         reg.Email,
		Phone:         reg.Phone,
		State:         reg.State,
		Qualification: reg.Qualification,
		Course:        reg.Course,
		Consent:       reg.Consent,
		EventDetails:  reg.EventDetails,
		CreatedAt:     reg.CreatedAt,
		UpdatedAt:     reg.UpdatedAt,
	}
}
