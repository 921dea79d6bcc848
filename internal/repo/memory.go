package repo

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"checkinBoard/internal/clock"
	"checkinBoard/internal/model"
)

type ledgerKey struct {
	eventID    string
	attendeeID string
}

// memoryRepository keeps everything in process memory. A single RWMutex is
// the one mutual-exclusion domain for all writes; reads hand out copies.
type memoryRepository struct {
	mu  sync.RWMutex
	log *zerolog.Logger
	clk clock.Clock

	events    []*model.Event
	attendees []*model.Attendee
	byEmail   map[string]*model.Attendee
	records   []model.AttendanceRecord
	attended  map[ledgerKey]struct{}
	settings  *model.SyncSettings
}

func NewMemoryRepository(log *zerolog.Logger, clk clock.Clock) Repository {
	return &memoryRepository{
		log:      log,
		clk:      clk,
		byEmail:  make(map[string]*model.Attendee),
		attended: make(map[ledgerKey]struct{}),
	}
}

func (r *memoryRepository) CreateEvent(_ context.Context, e *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.ID = uuid.NewString()
	stored := *e
	r.events = append(r.events, &stored)
	return nil
}

func (r *memoryRepository) GetEventByID(_ context.Context, id string) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e := r.findEvent(id)
	if e == nil {
		return nil, ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memoryRepository) GetAllEvents(_ context.Context) ([]model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]model.Event, 0, len(r.events))
	for _, e := range r.events {
		events = append(events, *e)
	}
	return events, nil
}

func (r *memoryRepository) UpdateEventTx(_ context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.findEvent(id)
	if e == nil {
		return nil, ErrEventNotFound
	}
	patch.Apply(e)
	cp := *e
	return &cp, nil
}

// DeleteEventTx drops the event together with its ledger entries. Points
// already accrued by attendees are kept.
func (r *memoryRepository) DeleteEventTx(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, e := range r.events {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrEventNotFound
	}
	r.events = append(r.events[:idx], r.events[idx+1:]...)

	kept := r.records[:0]
	removed := 0
	for _, rec := range r.records {
		if rec.EventID != id {
			kept = append(kept, rec)
			continue
		}
		removed++
		delete(r.attended, ledgerKey{eventID: rec.EventID, attendeeID: rec.AttendeeID})
	}
	r.records = kept

	r.log.Debug().Str("event_id", id).Int("records_removed", removed).Msg("event deleted")
	return nil
}

func (r *memoryRepository) GetAllAttendees(_ context.Context) ([]model.Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	attendees := make([]model.Attendee, 0, len(r.attendees))
	for _, a := range r.attendees {
		attendees = append(attendees, *a)
	}
	return attendees, nil
}

func (r *memoryRepository) GetAttendeeByID(_ context.Context, id string) (*model.Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a := r.findAttendee(id)
	if a == nil {
		return nil, ErrAttendeeNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memoryRepository) GetAttendeeByEmail(_ context.Context, email string) (*model.Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrAttendeeNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memoryRepository) GetOrCreateAttendee(_ context.Context, email, fullName string) (*model.Attendee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *r.getOrCreateAttendee(email, fullName)
	return &cp, nil
}

func (r *memoryRepository) RecordCheckInTx(_ context.Context, in model.CheckIn) (*model.CheckInResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event := r.findEvent(in.EventID)
	if event == nil {
		return nil, ErrEventNotFound
	}

	attendee := r.getOrCreateAttendee(in.Email, in.FullName)
	key := ledgerKey{eventID: event.ID, attendeeID: attendee.ID}
	if _, ok := r.attended[key]; ok {
		return nil, ErrDuplicateCheckIn
	}

	rec := model.AttendanceRecord{
		ID:            uuid.NewString(),
		EventID:       event.ID,
		AttendeeID:    attendee.ID,
		CheckedInAt:   in.At,
		PointsAwarded: event.PointsValue,
	}
	r.records = append(r.records, rec)
	r.attended[key] = struct{}{}
	attendee.TotalPoints += rec.PointsAwarded
	attendee.EventsAttended++

	return &model.CheckInResult{
		Record:   rec,
		Attendee: *attendee,
		Event:    *event,
	}, nil
}

func (r *memoryRepository) GetAttendanceRecords(_ context.Context) ([]model.AttendanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]model.AttendanceRecord, len(r.records))
	copy(records, r.records)
	return records, nil
}

func (r *memoryRepository) GetAttendanceByEventID(_ context.Context, eventID string) ([]model.AttendanceRecord, error) {
	return r.filterRecords(func(rec model.AttendanceRecord) bool { return rec.EventID == eventID }), nil
}

func (r *memoryRepository) GetAttendanceByAttendeeID(_ context.Context, attendeeID string) ([]model.AttendanceRecord, error) {
	return r.filterRecords(func(rec model.AttendanceRecord) bool { return rec.AttendeeID == attendeeID }), nil
}

func (r *memoryRepository) HasAttended(_ context.Context, eventID, attendeeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.attended[ledgerKey{eventID: eventID, attendeeID: attendeeID}]
	return ok, nil
}

func (r *memoryRepository) StatsSnapshot(_ context.Context) (*model.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &model.Stats{
		TotalEvents:    len(r.events),
		TotalAttendees: len(r.attendees),
		TotalCheckIns:  len(r.records),
	}
	for _, a := range r.attendees {
		stats.TotalPointsAwarded += a.TotalPoints
	}
	return stats, nil
}

func (r *memoryRepository) GetSyncSettings(_ context.Context) (*model.SyncSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.settings == nil {
		return nil, ErrSyncSettingsNotFound
	}
	cp := *r.settings
	return &cp, nil
}

func (r *memoryRepository) SaveSyncSettings(_ context.Context, s model.SyncSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings = &s
	return nil
}

func (r *memoryRepository) ClearSyncSettings(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings = nil
	return nil
}

// callers hold mu.
func (r *memoryRepository) findEvent(id string) *model.Event {
	for _, e := range r.events {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// callers hold mu.
func (r *memoryRepository) findAttendee(id string) *model.Attendee {
	for _, a := range r.attendees {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// callers hold mu for writing.
func (r *memoryRepository) getOrCreateAttendee(email, fullName string) *model.Attendee {
	normalized := strings.ToLower(email)
	if a, ok := r.byEmail[normalized]; ok {
		return a
	}
	a := &model.Attendee{
		ID:        uuid.NewString(),
		Email:     normalized,
		FullName:  fullName,
		CreatedAt: r.clk.Now(),
	}
	r.attendees = append(r.attendees, a)
	r.byEmail[normalized] = a
	r.log.Debug().Str("attendee_id", a.ID).Str("email", a.Email).Msg("attendee created")
	return a
}

func (r *memoryRepository) filterRecords(keep func(model.AttendanceRecord) bool) []model.AttendanceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.AttendanceRecord, 0)
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}
