package event

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/skillmint/regsync/internal/infrastructure/persistence/postgres/connection"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, ev *Event) error
	Update(ctx context.Context, ev *Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Event, error)
	FindByTitle(ctx context.Context, title string) (*Event, error)
	FindBySlug(ctx context.Context, slug string) (*Event, error)
	FindAll(ctx context.Context) ([]Event, error)
	ListTitles(ctx context.Context) ([]string, error)
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, ev *Event) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *repository) Update(ctx context.Context, ev *Event) error {
	return r.db.WithContext(ctx).Save(ev).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Event{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var ev Event
	result := r.db.WithContext(ctx).First(&ev, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, result.Error
	}
	return &ev, nil
}

func (r *repository) FindByTitle(ctx context.Context, title string) (*Event, error) {
	var ev Event
	result := r.db.WithContext(ctx).Where("title = ?", title).First(&ev)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, result.Error
	}
	return &ev, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*Event, error) {
	var ev Event
	result := r.db.WithContext(ctx).Where("slug = ?", slug).First(&ev)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, result.Error
	}
	return &ev, nil
}

func (r *repository) FindAll(ctx context.Context) ([]Event, error) {
	var events []Event
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) ListTitles(ctx context.Context) ([]string, error) {
	var titles []string
	if err := r.db.WithContext(ctx).Model(&Event{}).Order("title asc").Pluck("title", &titles).Error; err != nil {
		return nil, err
	}
	return titles, nil
}
