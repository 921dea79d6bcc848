package repo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"

	"checkinBoard/internal/clock"
	"checkinBoard/internal/model"
)

var (
	eventCols    = []string{"id", "name", "description", "date", "location", "points_value", "created_at"}
	attendeeCols = []string{"id", "email", "full_name", "total_points", "events_attended", "created_at"}
)

func newMockRepo(t *testing.T) (*postgresRepository, sqlmock.Sqlmock, time.Time) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.Nop()
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	return &postgresRepository{db: &dbpg.DB{Master: db}, log: &log, clk: clock.NewFixed(now)}, mock, now
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestPostgres_RecordCheckInTx(t *testing.T) {
	r, mock, now := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM events WHERE id = $1 FOR SHARE")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow("e1", "Seminar", "", now, "", 10, now))
	mock.ExpectExec(q("INSERT INTO attendees")).
		WithArgs(sqlmock.AnyArg(), "jdoe@caltech.edu", "J Doe", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("FROM attendees WHERE email = $1 FOR UPDATE")).
		WithArgs("jdoe@caltech.edu").
		WillReturnRows(sqlmock.NewRows(attendeeCols).AddRow("a1", "jdoe@caltech.edu", "J Doe", 0, 0, now))
	mock.ExpectExec(q("INSERT INTO attendance_records")).
		WithArgs(sqlmock.AnyArg(), "e1", "a1", now, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("UPDATE attendees")).
		WithArgs(10, "a1").
		WillReturnRows(sqlmock.NewRows([]string{"total_points", "events_attended"}).AddRow(10, 1))
	mock.ExpectCommit()

	res, err := r.RecordCheckInTx(context.Background(), model.CheckIn{EventID: "e1", Email: "JDoe@caltech.edu", FullName: "J Doe", At: now})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Record.PointsAwarded)
	assert.Equal(t, 10, res.Attendee.TotalPoints)
	assert.Equal(t, 1, res.Attendee.EventsAttended)
	assert.Equal(t, "Seminar", res.Event.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordCheckInTx_Duplicate(t *testing.T) {
	r, mock, now := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR SHARE")).
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow("e1", "Seminar", "", now, "", 10, now))
	mock.ExpectExec(q("INSERT INTO attendees")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(attendeeCols).AddRow("a1", "jdoe@caltech.edu", "J Doe", 10, 1, now))
	mock.ExpectExec(q("INSERT INTO attendance_records")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := r.RecordCheckInTx(context.Background(), model.CheckIn{EventID: "e1", Email: "jdoe@caltech.edu", FullName: "J Doe", At: now})
	assert.ErrorIs(t, err, ErrDuplicateCheckIn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordCheckInTx_UnknownEvent(t *testing.T) {
	r, mock, now := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR SHARE")).WithArgs("missing").WillReturnRows(sqlmock.NewRows(eventCols))
	mock.ExpectRollback()

	_, err := r.RecordCheckInTx(context.Background(), model.CheckIn{EventID: "missing", Email: "x@caltech.edu", FullName: "X", At: now})
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteEventTx(t *testing.T) {
	r, mock, _ := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM events WHERE id = $1 FOR UPDATE")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("e1"))
	mock.ExpectExec(q("DELETE FROM attendance_records WHERE event_id = $1")).WithArgs("e1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("DELETE FROM events WHERE id = $1")).WithArgs("e1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, r.DeleteEventTx(context.Background(), "e1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteEventTx_NotFound(t *testing.T) {
	r, mock, _ := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).WithArgs("missing").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	assert.ErrorIs(t, r.DeleteEventTx(context.Background(), "missing"), ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateEventTx(t *testing.T) {
	r, mock, now := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM events WHERE id = $1 FOR UPDATE")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow("e1", "Seminar", "d", now, "old", 10, now))
	mock.ExpectExec(q("UPDATE events")).
		WithArgs("Seminar", "d", now, "new", 10, "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	loc := "new"
	e, err := r.UpdateEventTx(context.Background(), "e1", model.EventPatch{Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, "new", e.Location)
	assert.Equal(t, "Seminar", e.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveSyncSettings(t *testing.T) {
	r, mock, _ := newMockRepo(t)

	mock.ExpectExec(q("INSERT INTO sync_settings")).
		WithArgs("k", "d", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.SaveSyncSettings(context.Background(), model.SyncSettings{APIKey: "k", DatabaseID: "d", IsConnected: true}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_StatsSnapshot(t *testing.T) {
	r, mock, _ := newMockRepo(t)

	mock.ExpectQuery(q("(SELECT COALESCE(SUM(total_points), 0) FROM attendees)")).
		WillReturnRows(sqlmock.NewRows([]string{"events", "attendees", "records", "points"}).AddRow(2, 3, 4, 55))

	stats, err := r.StatsSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Stats{TotalEvents: 2, TotalAttendees: 3, TotalCheckIns: 4, TotalPointsAwarded: 55}, *stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
