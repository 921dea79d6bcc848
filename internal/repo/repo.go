package repo

import (
	"context"
	"errors"

	"checkinBoard/internal/model"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrAttendeeNotFound     = errors.New("attendee not found")
	ErrDuplicateCheckIn     = errors.New("duplicate check-in")
	ErrSyncSettingsNotFound = errors.New("sync settings not configured")
)

// Repository is the storage boundary for events, attendees, the attendance
// ledger and the sync settings singleton.
//
// Methods with a Tx suffix are atomic: no other call observes a partial result.
type Repository interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	GetAllEvents(ctx context.Context) ([]model.Event, error)
	UpdateEventTx(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error)
	DeleteEventTx(ctx context.Context, id string) error

	GetAllAttendees(ctx context.Context) ([]model.Attendee, error)
	GetAttendeeByID(ctx context.Context, id string) (*model.Attendee, error)
	GetAttendeeByEmail(ctx context.Context, email string) (*model.Attendee, error)
	GetOrCreateAttendee(ctx context.Context, email, fullName string) (*model.Attendee, error)

	RecordCheckInTx(ctx context.Context, in model.CheckIn) (*model.CheckInResult, error)
	GetAttendanceRecords(ctx context.Context) ([]model.AttendanceRecord, error)
	GetAttendanceByEventID(ctx context.Context, eventID string) ([]model.AttendanceRecord, error)
	GetAttendanceByAttendeeID(ctx context.Context, attendeeID string) ([]model.AttendanceRecord, error)
	HasAttended(ctx context.Context, eventID, attendeeID string) (bool, error)
	// StatsSnapshot counts events, attendees, check-ins and accrued points
	// from one consistent view.
	StatsSnapshot(ctx context.Context) (*model.Stats, error)

	GetSyncSettings(ctx context.Context) (*model.SyncSettings, error)
	SaveSyncSettings(ctx context.Context, s model.SyncSettings) error
	ClearSyncSettings(ctx context.Context) error
}

// Migrator is implemented by stores that keep a schema.
type Migrator interface {
	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}
