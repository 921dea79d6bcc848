package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"checkinBoard/internal/dto"
	"checkinBoard/internal/model"
	"checkinBoard/internal/repo"
	"checkinBoard/pkg/validator"
)

// CheckIn records attendance and accrues points. The ledger write is the
// outcome; the external mirror is only queued afterwards.
func (s *service) CheckIn(ctx context.Context, req dto.CheckInRequest) (*model.CheckInResult, error) {
	if verr := validator.Validate(ctx, req); verr != nil {
		return nil, validationError(verr.Error())
	}

	if _, err := s.repo.GetEventByID(ctx, req.EventID); err != nil {
		return nil, err
	}

	if !strings.HasSuffix(req.Email, s.cfg.EmailDomain) {
		return nil, ErrInvalidEmail
	}

	res, err := s.repo.RecordCheckInTx(ctx, model.CheckIn{
		EventID:  req.EventID,
		Email:    req.Email,
		FullName: strings.TrimSpace(req.FullName),
		At:       s.clk.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("event_id", res.Event.ID).
		Str("attendee_id", res.Attendee.ID).
		Int("points_awarded", res.Record.PointsAwarded).
		Int("total_points", res.Attendee.TotalPoints).
		Msg("check-in recorded")

	s.enqueueSync(ctx, res)
	return res, nil
}

func (s *service) enqueueSync(ctx context.Context, res *model.CheckInResult) {
	if s.queue == nil {
		return
	}

	settings, err := s.repo.GetSyncSettings(ctx)
	if errors.Is(err, repo.ErrSyncSettingsNotFound) {
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to load sync settings, check-in not mirrored")
		return
	}
	if !settings.IsConnected {
		return
	}

	payload, err := json.Marshal(dto.SyncTask{
		RecordID:      res.Record.ID,
		EventID:       res.Event.ID,
		EventName:     res.Event.Name,
		AttendeeName:  res.Attendee.FullName,
		AttendeeEmail: res.Attendee.Email,
		PointsAwarded: res.Record.PointsAwarded,
		CheckedInAt:   res.Record.CheckedInAt,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal sync task")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	defer cancel()
	if err := s.queue.Publish(pubCtx, payload); err != nil {
		s.log.Warn().Err(err).Str("record_id", res.Record.ID).Msg("failed to queue sync task, check-in not mirrored")
	}
}

func (s *service) ListAttendance(ctx context.Context) ([]dto.AttendanceResponse, error) {
	records, err := s.repo.GetAttendanceRecords(ctx)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, records)
}

func (s *service) ListEventAttendance(ctx context.Context, eventID string) ([]dto.AttendanceResponse, error) {
	if _, err := s.repo.GetEventByID(ctx, eventID); err != nil {
		return nil, err
	}
	records, err := s.repo.GetAttendanceByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, records)
}

func (s *service) enrich(ctx context.Context, records []model.AttendanceRecord) ([]dto.AttendanceResponse, error) {
	events, err := s.repo.GetAllEvents(ctx)
	if err != nil {
		return nil, err
	}
	attendees, err := s.repo.GetAllAttendees(ctx)
	if err != nil {
		return nil, err
	}

	eventNames := make(map[string]string, len(events))
	for _, e := range events {
		eventNames[e.ID] = e.Name
	}
	byID := make(map[string]model.Attendee, len(attendees))
	for _, a := range attendees {
		byID[a.ID] = a
	}

	out := make([]dto.AttendanceResponse, 0, len(records))
	for _, rec := range records {
		item := dto.AttendanceResponse{
			AttendanceRecord: rec,
			EventName:        "Unknown Event",
			AttendeeName:     "Unknown Attendee",
		}
		if name, ok := eventNames[rec.EventID]; ok {
			item.EventName = name
		}
		if a, ok := byID[rec.AttendeeID]; ok {
			item.AttendeeName = a.FullName
			item.AttendeeEmail = a.Email
		}
		out = append(out, item)
	}
	return out, nil
}
