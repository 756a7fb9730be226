package event

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Common errors
var (
	ErrEventNotFound  = errors.New("event not found")
	ErrDuplicateTitle = errors.New("an event with this title already exists")
	ErrDuplicateSlug  = errors.New("an event with this slug already exists")
	ErrInvalidInput   = errors.New("invalid event input")
)

// Event represents a marketing event. The sync subsystem only reads events
// to keep each sink's metadata tab fresh; it never writes them.
type Event struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Title        string         `gorm:"size:255;not null;uniqueIndex" json:"title"`
	Slug         string         `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Description  string         `gorm:"type:text" json:"description"`
	StartTime    *time.Time     `json:"start_time"`
	EndTime      *time.Time     `json:"end_time"`
	Timezone     string         `gorm:"size:64" json:"timezone"`
	HostName     string         `gorm:"size:255" json:"host_name"`
	JoinURL      string         `gorm:"size:512" json:"join_url"`
	Price        float64        `json:"price"`
	Currency     string         `gorm:"size:8" json:"currency"`
	CallToAction string         `gorm:"size:255" json:"call_to_action"`
	Tags         pq.StringArray `gorm:"type:text[]" json:"tags"`
	Highlights   pq.StringArray `gorm:"type:text[]" json:"highlights"`
	Agenda       pq.StringArray `gorm:"type:text[]" json:"agenda"`
	CreatedAt    time.Time      `gorm:"not null;default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:current_timestamp;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for events
func (Event) TableName() string {
	return "events"
}
