package registration

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/skillmint/regsync/internal/infrastructure/persistence/postgres/connection"
	"gorm.io/gorm"
)

// uniqueViolationCode is the postgres SQLSTATE for unique_violation.
const uniqueViolationCode = "23505"

type Repository interface {
	Create(ctx context.Context, reg *EventRegistration) error
	Update(ctx context.Context, reg *EventRegistration) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*EventRegistration, error)
	FindByEmail(ctx context.Context, email string) (*EventRegistration, error)
	FindByPhone(ctx context.Context, phone string) (*EventRegistration, error)
	FindByCourse(ctx context.Context, course string) ([]EventRegistration, error)
	FindAll(ctx context.Context, page, pageSize int) ([]EventRegistration, int64, error)
	DistinctCourses(ctx context.Context) ([]string, error)
	UpdateRowIndex(ctx context.Context, id uuid.UUID, rowIndex int64) error
	BulkUpdateRowIndexes(ctx context.Context, indexes map[uuid.UUID]int64) error
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, reg *EventRegistration) error {
	err := r.db.WithContext(ctx).Create(reg).Error
	return translateUniqueViolation(err)
}

func (r *repository) Update(ctx context.Context, reg *EventRegistration) error {
	err := r.db.WithContext(ctx).Save(reg).Error
	return translateUniqueViolation(err)
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&EventRegistration{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*EventRegistration, error) {
	var reg EventRegistration
	result := r.db.WithContext(ctx).First(&reg, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, result.Error
	}
	return &reg, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*EventRegistration, error) {
	var reg EventRegistration
	result := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&reg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, result.Error
	}
	return &reg, nil
}

func (r *repository) FindByPhone(ctx context.Context, phone string) (*EventRegistration, error) {
	var reg EventRegistration
	result := r.db.WithContext(ctx).Where("phone = ?", phone).First(&reg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, result.Error
	}
	return &reg, nil
}

// FindByCourse returns every registration for an event name, oldest first.
// The ordering fixes each registration's row position during a resync.
func (r *repository) FindByCourse(ctx context.Context, course string) ([]EventRegistration, error) {
	var regs []EventRegistration
	err := r.db.WithContext(ctx).
		Where("course = ?", course).
		Order("created_at asc").
		Find(&regs).Error
	if err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *repository) FindAll(ctx context.Context, page, pageSize int) ([]EventRegistration, int64, error) {
	var regs []EventRegistration
	var total int64

	query := r.db.WithContext(ctx).Model(&EventRegistration{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if pageSize <= 0 {
		pageSize = 100
	}
	err := query.Order("created_at desc").
		Offset(page * pageSize).
		Limit(pageSize).
		Find(&regs).Error
	if err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

func (r *repository) DistinctCourses(ctx context.Context) ([]string, error) {
	var courses []string
	err := r.db.WithContext(ctx).
		Model(&EventRegistration{}).
		Distinct("course").
		Order("course asc").
		Pluck("course", &courses).Error
	if err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *repository) UpdateRowIndex(ctx context.Context, id uuid.UUID, rowIndex int64) error {
	return r.db.WithContext(ctx).
		Model(&EventRegistration{}).
		Where("id = ?", id).
		Update("sheet_row_index", rowIndex).Error
}

// BulkUpdateRowIndexes rewrites the stored row pointers for a whole event in
// a single statement, used by resync after rebuilding the data tab.
func (r *repository) BulkUpdateRowIndexes(ctx context.Context, indexes map[uuid.UUID]int64) error {
	if len(indexes) == 0 {
		return nil
	}

	ids := make([]string, 0, len(indexes))
	rows := make([]int64, 0, len(indexes))
	for id, row := range indexes {
		ids = append(ids, id.String())
		rows = append(rows, row)
	}

	return r.db.WithContext(ctx).Exec(`
		UPDATE event_registrations AS r
		SET sheet_row_index = v.row_index
		FROM (SELECT unnest(?::uuid[]) AS id, unnest(?::bigint[]) AS row_index) AS v
		WHERE r.id = v.id`,
		pq.Array(ids), pq.Array(rows),
	).Error
}

// translateUniqueViolation maps a unique-index rejection to the domain
// duplicate error. The service pre-checks email and phone, but a concurrent
// submit can still race past it and hit the index. GORM's postgres driver
// runs on pgx, so the violation arrives as a *pgconn.PgError.
func translateUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return ErrDuplicateEmail
		}
		if strings.Contains(pgErr.ConstraintName, "phone") {
			return ErrDuplicatePhone
		}
	}
	return err
}
