package registration

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*EventRegistration, error)
	UpdateRegistration(ctx context.Context, id uuid.UUID, input UpdateInput) (*EventRegistration, error)
	DeleteRegistration(ctx context.Context, id uuid.UUID) (*EventRegistration, error)
	GetRegistration(ctx context.Context, id uuid.UUID) (*EventRegistration, error)
	ListRegistrations(ctx context.Context, page, pageSize int) ([]EventRegistration, int64, error)
	ListByCourse(ctx context.Context, course string) ([]EventRegistration, error)
}

type SubmitInput struct {
	Name          string                 `json:"name"`
	Email         string                 `json:"email"`
	Phone         string                 `json:"phone"`
	State         string                 `json:"state"`
	Qualification string                 `json:"qualification"`
	Course        string                 `json:"course"`
	Consent       bool                   `json:"consent"`
	EventDetails  map[string]interface{} `json:"event_details"`
}

type UpdateInput struct {
	Name          *string                `json:"name,omitempty"`
	Email         *string                `json:"email,omitempty"`
	Phone         *string                `json:"phone,omitempty"`
	State         *string                `json:"state,omitempty"`
	Qualification *string                `json:"qualification,omitempty"`
	Course        *string                `json:"course,omitempty"`
	Consent       *bool                  `json:"consent,omitempty"`
	EventDetails  map[string]interface{} `json:"event_details,omitempty"`
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*EventRegistration, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	phone := strings.TrimSpace(input.Phone)
	course := strings.TrimSpace(input.Course)
	if name == "" || email == "" || phone == "" || course == "" {
		return nil, ErrInvalidInput
	}

	// One registration per email and per phone, system-wide.
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	}
	if _, err := s.repo.FindByPhone(ctx, phone); err == nil {
		return nil, ErrDuplicatePhone
	}

	reg := &EventRegistration{
		ID:            uuid.New(),
		Name:          name,
		Email:         email,
		Phone:         phone,
		State:         strings.TrimSpace(input.State),
		Qualification: strings.TrimSpace(input.Qualification),
		Course:        course,
		Consent:       input.Consent,
		EventDetails:  datatypes.JSONMap(input.EventDetails),
	}

	if err := s.repo.Create(ctx, reg); err != nil {
		s.logger.Error("Failed to create registration",
			zap.String("email", email),
			zap.String("course", course),
			zap.Error(err),
		)
		return nil, err
	}
	return reg, nil
}

func (s *service) UpdateRegistration(ctx context.Context, id uuid.UUID, input UpdateInput) (*EventRegistration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		reg.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != reg.Email {
			if existing, err := s.repo.FindByEmail(ctx, email); err == nil && existing.ID != reg.ID {
				return nil, ErrDuplicateEmail
			}
		}
		reg.Email = email
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone != reg.Phone {
			if existing, err := s.repo.FindByPhone(ctx, phone); err == nil && existing.ID != reg.ID {
				return nil, ErrDuplicatePhone
			}
		}
		reg.Phone = phone
	}
	if input.State != nil {
		reg.State = strings.TrimSpace(*input.State)
	}
	if input.Qualification != nil {
		reg.Qualification = strings.TrimSpace(*input.Qualification)
	}
	if input.Course != nil {
		course := strings.TrimSpace(*input.Course)
		if course == "" {
			return nil, ErrInvalidInput
		}
		// Moving a registration to another event invalidates its row
		// pointer; the next sync re-appends it under the new sheet.
		if course != reg.Course {
			reg.SheetRowIndex = nil
		}
		reg.Course = course
	}
	if input.Consent != nil {
		reg.Consent = *input.Consent
	}
	if input.EventDetails != nil {
		reg.EventDetails = datatypes.JSONMap(input.EventDetails)
	}

	if err := s.repo.Update(ctx, reg); err != nil {
		s.logger.Error("Failed to update registration", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}
	return reg, nil
}

// DeleteRegistration removes the record and returns the deleted document so
// callers can trigger an event-scoped resync for its course.
func (s *service) DeleteRegistration(ctx context.Context, id uuid.UUID) (*EventRegistration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *service) GetRegistration(ctx context.Context, id uuid.UUID) (*EventRegistration, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListRegistrations(ctx context.Context, page, pageSize int) ([]EventRegistration, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize)
}

func (s *service) ListByCourse(ctx context.Context, course string) ([]EventRegistration, error) {
	return s.repo.FindByCourse(ctx, course)
}
