package migrations

import (
	"fmt"

	"github.com/skillmint/regsync/internal/domain/event"
	"github.com/skillmint/regsync/internal/domain/registration"
	"github.com/skillmint/regsync/internal/infrastructure/persistence/postgres/connection"
	"go.uber.org/zap"
)

// RegistrationChannel and EventChannel are the pg_notify channels the
// change-feed listener subscribes to.
const (
	RegistrationChannel = "regsync_registrations"
	EventChannel        = "regsync_events"
)

// registrationNotifyFn emits a JSON change payload for every write on the
// registrations table. On update it includes the names of the columns that
// actually changed, so the watcher can ignore its own pointer writes; on
// delete it carries the old row's course as the pre-image.
const registrationNotifyFn = `
CREATE OR REPLACE FUNCTION regsync_notify_registration() RETURNS trigger AS $$
DECLARE
	payload jsonb;
	changed text[];
BEGIN
	IF TG_OP = 'DELETE' THEN
		payload := jsonb_build_object('op', 'delete', 'id', OLD.id, 'course', OLD.course);
	ELSIF TG_OP = 'UPDATE' THEN
		SELECT coalesce(array_agg(n.key), '{}') INTO changed
		FROM jsonb_each(to_jsonb(NEW)) AS n
		WHERE to_jsonb(OLD) -> n.key IS DISTINCT FROM n.value;
		payload := jsonb_build_object('op', 'update', 'id', NEW.id, 'course', NEW.course, 'changed', to_jsonb(changed));
	ELSE
		payload := jsonb_build_object('op', 'insert', 'id', NEW.id, 'course', NEW.course);
	END IF;
	PERFORM pg_notify('` + RegistrationChannel + `', payload::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;
`

const eventNotifyFn = `
CREATE OR REPLACE FUNCTION regsync_notify_event() RETURNS trigger AS $$
DECLARE
	payload jsonb;
BEGIN
	IF TG_OP = 'DELETE' THEN
		payload := jsonb_build_object('op', 'delete', 'id', OLD.id, 'course', OLD.title);
	ELSE
		payload := jsonb_build_object('op', lower(TG_OP), 'id', NEW.id, 'course', NEW.title);
	END IF;
	PERFORM pg_notify('` + EventChannel + `', payload::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;
`

var triggerStatements = []string{
	registrationNotifyFn,
	eventNotifyFn,
	`DROP TRIGGER IF EXISTS regsync_registration_changed ON event_registrations`,
	`CREATE TRIGGER regsync_registration_changed
		AFTER INSERT OR UPDATE OR DELETE ON event_registrations
		FOR EACH ROW EXECUTE FUNCTION regsync_notify_registration()`,
	`DROP TRIGGER IF EXISTS regsync_event_changed ON events`,
	`CREATE TRIGGER regsync_event_changed
		AFTER INSERT OR UPDATE OR DELETE ON events
		FOR EACH ROW EXECUTE FUNCTION regsync_notify_event()`,
}

// AutoMigrate runs database migrations for all models and installs the
// change-feed triggers.
func AutoMigrate(db *connection.Database, logger *zap.Logger) error {
	logger.Info("Starting automatic database migration...")

	// Enable UUID extension for PostgreSQL
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		logger.Error("Failed to create UUID extension", zap.Error(err))
		return fmt.Errorf("failed to create UUID extension: %v", err)
	}

	if err := db.AutoMigrate(
		&event.Event{},
		&registration.EventRegistration{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %v", err)
	}

	for _, stmt := range triggerStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to install change-feed trigger: %v", err)
		}
	}

	logger.Info("Database migration completed")
	return nil
}
