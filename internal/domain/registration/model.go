package registration

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Common errors
var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrDuplicateEmail       = errors.New("a registration with this email already exists")
	ErrDuplicatePhone       = errors.New("a registration with this phone number already exists")
	ErrInvalidInput         = errors.New("invalid registration input")
)

// EventRegistration is a learner's submission against a named event. Course
// is the free-text event-name key the sync subsystem groups rows by.
// SheetRowIndex is the only sync-specific state persisted here: the 1-based
// row the registration occupies in its event's sheet, nil before the first
// successful sheet write.
type EventRegistration struct {
	ID            uuid.UUID         `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name          string            `gorm:"size:255;not null" json:"name"`
	Email         string            `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone         string            `gorm:"size:32;not null;uniqueIndex" json:"phone"`
	State         string            `gorm:"size:128" json:"state"`
	Qualification string            `gorm:"size:255" json:"qualification"`
	Course        string            `gorm:"size:255;not null;index" json:"course"`
	Consent       bool              `gorm:"not null;default:false" json:"consent"`
	EventDetails  datatypes.JSONMap `gorm:"type:jsonb" json:"event_details"`
	SheetRowIndex *int64            `gorm:"column:sheet_row_index" json:"sheet_row_index"`
	CreatedAt     time.Time         `gorm:"not null;default:current_timestamp;index" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:current_timestamp;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for registrations
func (EventRegistration) TableName() string {
	return "event_registrations"
}

// EventDetailString returns a string value from the event_details blob,
// or "" when absent.
func (r *EventRegistration) EventDetailString(key string) string {
	if r.EventDetails == nil {
		return ""
	}
	if v, ok := r.EventDetails[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
