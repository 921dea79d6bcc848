package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"checkinBoard/internal/clock"
	"checkinBoard/internal/model"
)

type postgresRepository struct {
	db  *dbpg.DB
	log *zerolog.Logger
	clk clock.Clock
}

// PostgresRepository is the Postgres-backed store. It also runs its own
// migrations.
type PostgresRepository interface {
	Repository
	Migrator
}

func NewPostgresRepository(db *dbpg.DB, log *zerolog.Logger, clk clock.Clock) (PostgresRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &postgresRepository{db: db, log: log, clk: clk}, nil
}

func (r *postgresRepository) MigrateUp(migrationsDir string) error {
	return r.runMigrations(migrationsDir, "*.up.sql", false)
}

func (r *postgresRepository) MigrateDown(migrationsDir string) error {
	return r.runMigrations(migrationsDir, "*.down.sql", true)
}

func (r *postgresRepository) runMigrations(dir, pattern string, reverse bool) error {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		if _, err := r.db.Master.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Int("files", len(files)).Msgf("Migrations %s applied from %s", pattern, dir)
	return nil
}

const eventColumns = `id, name, description, date, location, points_value, created_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	if err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Date, &e.Location, &e.PointsValue, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

const attendeeColumns = `id, email, full_name, total_points, events_attended, created_at`

func scanAttendee(row interface{ Scan(...any) error }) (*model.Attendee, error) {
	var a model.Attendee
	if err := row.Scan(&a.ID, &a.Email, &a.FullName, &a.TotalPoints, &a.EventsAttended, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

const recordColumns = `id, event_id, attendee_id, checked_in_at, points_awarded`

func (r *postgresRepository) CreateEvent(ctx context.Context, e *model.Event) error {
	e.ID = uuid.NewString()
	_, err := r.db.Master.ExecContext(ctx, `
		INSERT INTO events (id, name, description, date, location, points_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.Name, e.Description, e.Date, e.Location, e.PointsValue, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (r *postgresRepository) GetAllEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (r *postgresRepository) UpdateEventTx(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	var updated *model.Event
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		e, err := scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to select event for update: %w", err)
		}

		patch.Apply(e)
		if _, err := tx.ExecContext(ctx, `
			UPDATE events
			SET name = $1, description = $2, date = $3, location = $4, points_value = $5
			WHERE id = $6
		`, e.Name, e.Description, e.Date, e.Location, e.PointsValue, e.ID); err != nil {
			return fmt.Errorf("failed to update event: %w", err)
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteEventTx removes the event and its ledger entries; attendee totals
// are left as accrued.
func (r *postgresRepository) DeleteEventTx(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, id).Scan(&existing)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to select event for delete: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE event_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete attendance records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}
		return nil
	})
}

func (r *postgresRepository) GetAllAttendees(ctx context.Context) ([]model.Attendee, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+attendeeColumns+` FROM attendees ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendees: %w", err)
	}
	defer rows.Close()

	attendees := make([]model.Attendee, 0)
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		attendees = append(attendees, *a)
	}
	return attendees, rows.Err()
}

func (r *postgresRepository) GetAttendeeByID(ctx context.Context, id string) (*model.Attendee, error) {
	a, err := scanAttendee(r.db.QueryRowContext(ctx, `SELECT `+attendeeColumns+` FROM attendees WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttendeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendee: %w", err)
	}
	return a, nil
}

func (r *postgresRepository) GetAttendeeByEmail(ctx context.Context, email string) (*model.Attendee, error) {
	a, err := scanAttendee(r.db.QueryRowContext(ctx,
		`SELECT `+attendeeColumns+` FROM attendees WHERE email = $1`, strings.ToLower(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttendeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendee by email: %w", err)
	}
	return a, nil
}

func (r *postgresRepository) GetOrCreateAttendee(ctx context.Context, email, fullName string) (*model.Attendee, error) {
	var attendee *model.Attendee
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		a, err := r.getOrCreateAttendeeTx(ctx, tx, email, fullName)
		attendee = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return attendee, nil
}

// getOrCreateAttendeeTx leaves the attendee row locked until tx ends.
func (r *postgresRepository) getOrCreateAttendeeTx(ctx context.Context, tx *sql.Tx, email, fullName string) (*model.Attendee, error) {
	normalized := strings.ToLower(email)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO attendees (id, email, full_name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
	`, uuid.NewString(), normalized, fullName, r.clk.Now()); err != nil {
		return nil, fmt.Errorf("failed to insert attendee: %w", err)
	}

	a, err := scanAttendee(tx.QueryRowContext(ctx,
		`SELECT `+attendeeColumns+` FROM attendees WHERE email = $1 FOR UPDATE`, normalized))
	if err != nil {
		return nil, fmt.Errorf("failed to select attendee: %w", err)
	}
	return a, nil
}

func (r *postgresRepository) RecordCheckInTx(ctx context.Context, in model.CheckIn) (*model.CheckInResult, error) {
	var result *model.CheckInResult
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		event, err := scanEvent(tx.QueryRowContext(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR SHARE`, in.EventID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to select event: %w", err)
		}

		attendee, err := r.getOrCreateAttendeeTx(ctx, tx, in.Email, in.FullName)
		if err != nil {
			return err
		}

		rec := model.AttendanceRecord{
			ID:            uuid.NewString(),
			EventID:       event.ID,
			AttendeeID:    attendee.ID,
			CheckedInAt:   in.At,
			PointsAwarded: event.PointsValue,
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_records (id, event_id, attendee_id, checked_in_at, points_awarded)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (event_id, attendee_id) DO NOTHING
		`, rec.ID, rec.EventID, rec.AttendeeID, rec.CheckedInAt, rec.PointsAwarded)
		if err != nil {
			return fmt.Errorf("failed to insert attendance record: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		} else if n == 0 {
			return ErrDuplicateCheckIn
		}

		if err := tx.QueryRowContext(ctx, `
			UPDATE attendees
			SET total_points = total_points + $1, events_attended = events_attended + 1
			WHERE id = $2
			RETURNING total_points, events_attended
		`, rec.PointsAwarded, attendee.ID).Scan(&attendee.TotalPoints, &attendee.EventsAttended); err != nil {
			return fmt.Errorf("failed to accrue points: %w", err)
		}

		result = &model.CheckInResult{Record: rec, Attendee: *attendee, Event: *event}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepository) GetAttendanceRecords(ctx context.Context) ([]model.AttendanceRecord, error) {
	return r.queryRecords(ctx, `SELECT `+recordColumns+` FROM attendance_records ORDER BY seq ASC`)
}

func (r *postgresRepository) GetAttendanceByEventID(ctx context.Context, eventID string) ([]model.AttendanceRecord, error) {
	return r.queryRecords(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE event_id = $1 ORDER BY seq ASC`, eventID)
}

func (r *postgresRepository) GetAttendanceByAttendeeID(ctx context.Context, attendeeID string) ([]model.AttendanceRecord, error) {
	return r.queryRecords(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE attendee_id = $1 ORDER BY seq ASC`, attendeeID)
}

func (r *postgresRepository) queryRecords(ctx context.Context, query string, args ...any) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance records: %w", err)
	}
	defer rows.Close()

	records := make([]model.AttendanceRecord, 0)
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.AttendeeID, &rec.CheckedInAt, &rec.PointsAwarded); err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *postgresRepository) HasAttended(ctx context.Context, eventID, attendeeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM attendance_records WHERE event_id = $1 AND attendee_id = $2)
	`, eventID, attendeeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check attendance: %w", err)
	}
	return exists, nil
}

// StatsSnapshot reads all counters in one statement, so they share a snapshot.
func (r *postgresRepository) StatsSnapshot(ctx context.Context) (*model.Stats, error) {
	var s model.Stats
	err := r.db.Master.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM attendees),
			(SELECT COUNT(*) FROM attendance_records),
			(SELECT COALESCE(SUM(total_points), 0) FROM attendees)
	`).Scan(&s.TotalEvents, &s.TotalAttendees, &s.TotalCheckIns, &s.TotalPointsAwarded)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	return &s, nil
}

func (r *postgresRepository) GetSyncSettings(ctx context.Context) (*model.SyncSettings, error) {
	var s model.SyncSettings
	err := r.db.QueryRowContext(ctx,
		`SELECT api_key, database_id, is_connected FROM sync_settings WHERE id = 1`,
	).Scan(&s.APIKey, &s.DatabaseID, &s.IsConnected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSyncSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync settings: %w", err)
	}
	return &s, nil
}

func (r *postgresRepository) SaveSyncSettings(ctx context.Context, s model.SyncSettings) error {
	_, err := r.db.Master.ExecContext(ctx, `
		INSERT INTO sync_settings (id, api_key, database_id, is_connected)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET api_key = EXCLUDED.api_key, database_id = EXCLUDED.database_id, is_connected = EXCLUDED.is_connected
	`, s.APIKey, s.DatabaseID, s.IsConnected)
	if err != nil {
		return fmt.Errorf("failed to save sync settings: %w", err)
	}
	return nil
}

func (r *postgresRepository) ClearSyncSettings(ctx context.Context) error {
	if _, err := r.db.Master.ExecContext(ctx, `DELETE FROM sync_settings WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear sync settings: %w", err)
	}
	return nil
}

func (r *postgresRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
